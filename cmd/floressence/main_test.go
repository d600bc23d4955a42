// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildBanner_AlignedForAnyPortWidth(t *testing.T) {
	for _, port := range []int{80, 8080, 65535} {
		banner := buildBanner(port)
		lines := strings.Split(strings.Trim(banner, "\n"), "\n")
		if len(lines) < 10 {
			t.Fatalf("port %d: banner unexpectedly short (%d lines)", port, len(lines))
		}

		width := utf8.RuneCountInString(lines[0])
		for i, line := range lines {
			if got := utf8.RuneCountInString(line); got != width {
				t.Errorf("port %d: line %d is %d runes wide, want %d: %q", port, i, got, width, line)
			}
		}
	}
}

func TestBuildBanner_ContainsPort(t *testing.T) {
	banner := buildBanner(9090)
	if !strings.Contains(banner, "http://localhost:9090/v1/recommendations") {
		t.Error("banner does not mention the configured port")
	}
}
