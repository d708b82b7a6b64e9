// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import "errors"

// Start begins continuous measurement. It is a no-op when already running.
func (d *Device) Start() error {
	if d.running {
		return nil
	}
	if err := d.command(StartMeasurement); err != nil {
		return err
	}
	d.running = true
	d.clock.Sleep(startDelay)
	return nil
}

// Stop ends continuous measurement. It is a no-op when already idle.
func (d *Device) Stop() error {
	if !d.running {
		return nil
	}
	if err := d.command(StopMeasurement); err != nil {
		return err
	}
	d.running = false
	d.clock.Sleep(stopDelay)
	return nil
}

// Reset restarts the module. The session is idle afterwards.
func (d *Device) Reset() error {
	if err := d.command(Reset); err != nil {
		return err
	}
	d.running = false
	d.pendingRestart = false
	d.clock.Sleep(resetDelay)
	return nil
}

// ensureStarted starts a measurement for operations that need one.
// A failed start is reported as CommandNotAllowedInState.
func (d *Device) ensureStarted(c Command) error {
	if d.running {
		return nil
	}
	if err := d.Start(); err != nil {
		return newError(CodeCommandNotAllowedInState, c.String(), err)
	}
	return nil
}

// checkToStop stops a running measurement and remembers to restart it
func (d *Device) checkToStop() error {
	d.pendingRestart = false
	if !d.running {
		return nil
	}
	if err := d.Stop(); err != nil {
		return err
	}
	d.pendingRestart = true
	return nil
}

// checkWasRestart restarts a measurement stopped by checkToStop
func (d *Device) checkWasRestart() error {
	if !d.pendingRestart {
		return nil
	}
	if err := d.Start(); err != nil {
		return err
	}
	d.pendingRestart = false
	return nil
}

// guarded runs op with measurement stopped.
//
// The command is resolved and validate runs before anything touches the bus.
// If the measurement was running it is restarted afterwards, also when op
// fails. A restart failure is joined after the op error so CodeOf still
// reports the op error.
func (d *Device) guarded(c Command, validate func() error, op func() error) error {
	if _, err := d.resolve(c); err != nil {
		return err
	}
	if validate != nil {
		if err := validate(); err != nil {
			return err
		}
	}

	if err := d.checkToStop(); err != nil {
		d.log.WithError(err).WithField("command", c.String()).Debug("could not stop measurement")
		return err
	}

	opErr := op()

	if err := d.checkWasRestart(); err != nil {
		d.log.WithError(err).WithField("command", c.String()).Debug("could not restart measurement")
		if opErr != nil {
			return errors.Join(opErr, err)
		}
		return err
	}
	return opErr
}
