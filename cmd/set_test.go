// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
)

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"ON", true, false},
		{" enable ", true, false},
		{"1", true, false},
		{"off", false, false},
		{"false", false, false},
		{"disable", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOnOff(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseUint16(t *testing.T) {
	if v, err := parseUint16("1013"); err != nil || v != 1013 {
		t.Errorf("expected 1013, got %d (%v)", v, err)
	}
	for _, bad := range []string{"-1", "65536", "abc", ""} {
		if _, err := parseUint16(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseInt16s(t *testing.T) {
	got, err := parseInt16s([]string{"100", "-12", " 32767 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int16{100, -12, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	if _, err := parseInt16s([]string{"1", "40000"}); err == nil {
		t.Error("expected overflow error")
	}
}

func TestOneOf(t *testing.T) {
	check := oneOf(0, 6)

	tests := []struct {
		args    []string
		wantErr bool
	}{
		{nil, false},
		{[]string{"1", "2", "3", "4", "5", "6"}, false},
		{[]string{"1"}, true},
		{[]string{"1", "2", "3", "4", "5", "6", "7"}, true},
	}

	for _, tt := range tests {
		err := check(nil, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%d args: unexpected error state: %v", len(tt.args), err)
		}
	}
}

func TestOnOff(t *testing.T) {
	if onOff(true) != "on" || onOff(false) != "off" {
		t.Error("unexpected on/off rendering")
	}
}
