// Copyright 2026 The glusterfs-sub024 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dht

import "strings"

// ParseSubvolHint implements the subvolume-hint naming convention: a
// filename matching "*@<instance>:<subvol>" names the real file up to
// "@" and overrides the hashed placement choice with <subvol>, provided
// <instance> matches this translator's configured instance name.
//
// It returns ok=false (and the original name unchanged) when the name
// carries no such hint, or the hint names a different instance.
func ParseSubvolHint(instance, name string) (realName, subvolName string, ok bool) {
	at := strings.LastIndexByte(name, '@')
	if at < 0 {
		return name, "", false
	}
	rest := name[at+1:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return name, "", false
	}
	hintInstance, hintSubvol := rest[:colon], rest[colon+1:]
	if hintInstance != instance || hintSubvol == "" {
		return name, "", false
	}
	return name[:at], hintSubvol, true
}
