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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLocalPutLocalResetsState(t *testing.T) {
	l := GetLocal()
	l.Gfid = "gfid-1"
	l.Err = errors.New("boom")
	l.CallCount = 3

	PutLocal(l)

	fresh := GetLocal()
	assert.Empty(t, fresh.Gfid)
	assert.NoError(t, fresh.Err)
	assert.Zero(t, fresh.CallCount)
}

func TestIncCallDecCallTracksFanOutCompletion(t *testing.T) {
	l := &Local{}
	l.IncCall(3)
	assert.Equal(t, 2, l.DecCall())
	assert.Equal(t, 1, l.DecCall())
	assert.Equal(t, 0, l.DecCall())
}
