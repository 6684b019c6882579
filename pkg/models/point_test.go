/*
 * Copyright 2026 Fieldwatch Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectTypePrefix(t *testing.T) {
	tests := []struct {
		name        string
		objType     ObjectType
		prefix      string
		monitorable bool
		analog      bool
		multiState  bool
	}{
		{name: "analog input", objType: ObjectAnalogInput, prefix: "AI", monitorable: true, analog: true},
		{name: "analog output", objType: ObjectAnalogOutput, prefix: "AO", monitorable: true, analog: true},
		{name: "analog value", objType: ObjectAnalogValue, prefix: "AV", monitorable: true, analog: true},
		{name: "binary input", objType: ObjectBinaryInput, prefix: "BI", monitorable: true},
		{name: "binary output", objType: ObjectBinaryOutput, prefix: "BO", monitorable: true},
		{name: "binary value", objType: ObjectBinaryValue, prefix: "BV", monitorable: true},
		{name: "multi-state input", objType: ObjectMultiStateInput, prefix: "MSI", monitorable: true, multiState: true},
		{name: "multi-state output", objType: ObjectMultiStateOutput, prefix: "MSO", monitorable: true, multiState: true},
		{name: "multi-state value", objType: ObjectMultiStateValue, prefix: "MSV", monitorable: true, multiState: true},
		{name: "device object is not monitorable", objType: ObjectDevice, prefix: ""},
		{name: "unknown type", objType: ObjectType(200), prefix: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.prefix, tt.objType.Prefix())
			assert.Equal(t, tt.monitorable, tt.objType.Monitorable())
			assert.Equal(t, tt.analog, tt.objType.Analog())
			assert.Equal(t, tt.multiState, tt.objType.MultiState())
		})
	}
}

func TestSyntheticID(t *testing.T) {
	assert.Equal(t, "AI-12", SyntheticID(ObjectAnalogInput, 12))
	assert.Equal(t, "MSV-3", SyntheticID(ObjectMultiStateValue, 3))
	assert.Equal(t, "BV-0", SyntheticID(ObjectBinaryValue, 0))
}

func TestDeviceKey(t *testing.T) {
	dev := &DiscoveredDevice{DeviceID: 4711}

	assert.Equal(t, "4711", dev.Key(""))
	assert.Equal(t, "hq-4711", dev.Key("hq-"))
}

func TestReconciliationResultEmpty(t *testing.T) {
	res := &ReconciliationResult{DeviceKey: "4711", Unchanged: 12}
	assert.True(t, res.Empty())

	res.Removals = []string{"AI-1"}
	assert.False(t, res.Empty())
}
