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

// Package wire implements the datagram codec for the building-automation
// discovery handshake and the generic property-read subset the scanner needs.
// All functions are pure: they operate on byte slices with explicit bounds
// checks and perform no I/O.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/fieldwatch/pointscan/pkg/models"
)

// Port is the fixed UDP port devices listen on.
const Port = 47808

// MaxDatagramSize bounds receive buffers. Field devices never exceed an
// ethernet MTU.
const MaxDatagramSize = 1500

const (
	frameMarker = 0x81

	funcUnicast   = 0x0A
	funcBroadcast = 0x0B

	protocolVersion = 0x01

	npduControlNone        = 0x00
	npduControlExpectReply = 0x04

	pduConfirmed   = 0x00
	pduUnconfirmed = 0x10
	pduComplexACK  = 0x30
	pduError       = 0x50
	pduReject      = 0x60
	pduAbort       = 0x70

	serviceIAm          = 0x00
	serviceWhoIs        = 0x08
	serviceReadProperty = 0x0C

	// No segmentation accepted, max 1476-octet replies.
	maxAPDUFlags = 0x05
)

// Application tag numbers.
const (
	tagUnsigned   = 0x2
	tagReal       = 0x4
	tagCharString = 0x7
	tagEnumerated = 0x9
	tagObjectID   = 0xC
)

const (
	whoIsFrameLen = 8
	iamMinLen     = 15

	headerLenOffset = 2
	npduOffset      = 4
	apduOffset      = 6
)

// Object identifiers pack a 10-bit type and a 22-bit instance into 32 bits.
const (
	instanceMask = 0x3FFFFF
	typeShift    = 22
)

// Scope selects the distribution of a discovery request.
type Scope uint8

const (
	ScopeBroadcast Scope = iota
	ScopeUnicast
)

// ObjectID identifies one object on a device.
type ObjectID struct {
	Type     models.ObjectType
	Instance uint32
}

func packObjectID(o ObjectID) uint32 {
	return uint32(o.Type)<<typeShift | o.Instance&instanceMask
}

func unpackObjectID(v uint32) ObjectID {
	return ObjectID{
		Type:     models.ObjectType(v >> typeShift),
		Instance: v & instanceMask,
	}
}

// EncodeWhoIs produces the fixed 8-byte discovery request frame.
func EncodeWhoIs(scope Scope) []byte {
	fn := byte(funcBroadcast)
	if scope == ScopeUnicast {
		fn = funcUnicast
	}

	frame := make([]byte, whoIsFrameLen)
	frame[0] = frameMarker
	frame[1] = fn
	binary.BigEndian.PutUint16(frame[headerLenOffset:], whoIsFrameLen)
	frame[4] = protocolVersion
	frame[5] = npduControlNone
	frame[6] = pduUnconfirmed
	frame[7] = serviceWhoIs

	return frame
}

// DecodeIAm parses a datagram as a discovery response. It returns nil for
// anything that is not a well-formed response: the scanner shares its port
// with arbitrary broadcast traffic, so "not our frame" is a routine outcome,
// never an error.
func DecodeIAm(datagram []byte, sender string) *models.DiscoveredDevice {
	if len(datagram) < iamMinLen {
		return nil
	}

	if datagram[0] != frameMarker {
		return nil
	}

	if datagram[1] != funcUnicast && datagram[1] != funcBroadcast {
		return nil
	}

	if datagram[4] != protocolVersion {
		return nil
	}

	// Routed frames insert addressing between version and APDU; we only
	// speak to devices on the local segment.
	if datagram[5] != npduControlNone {
		return nil
	}

	if datagram[6] != pduUnconfirmed || datagram[7] != serviceIAm {
		return nil
	}

	if datagram[8] != appTagHeader(tagObjectID, 4) {
		return nil
	}

	obj := unpackObjectID(binary.BigEndian.Uint32(datagram[9:13]))
	if obj.Type != models.ObjectDevice {
		return nil
	}

	maxFrame, off, ok := decodeTaggedUint(datagram, 13, tagUnsigned)
	if !ok || maxFrame > math.MaxUint16 {
		return nil
	}

	seg, off, ok := decodeTaggedUint(datagram, off, tagEnumerated)
	if !ok || seg > math.MaxUint8 {
		return nil
	}

	vendor, _, ok := decodeTaggedUint(datagram, off, tagUnsigned)
	if !ok || vendor > math.MaxUint16 {
		return nil
	}

	return &models.DiscoveredDevice{
		DeviceID:     obj.Instance,
		IP:           sender,
		VendorID:     uint16(vendor),
		MaxFrameSize: uint16(maxFrame),
		Segmentation: uint8(seg),
	}
}

// EncodeIAm builds a discovery response frame announcing the given device.
// The live scanner never sends these; they exist for the device simulator
// used in tests and for round-trip verification of DecodeIAm.
func EncodeIAm(deviceID uint32, vendorID, maxFrame uint16, segmentation uint8) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, frameMarker, funcBroadcast, 0, 0,
		protocolVersion, npduControlNone, pduUnconfirmed, serviceIAm)

	buf = append(buf, appTagHeader(tagObjectID, 4))
	buf = binary.BigEndian.AppendUint32(buf,
		packObjectID(ObjectID{Type: models.ObjectDevice, Instance: deviceID}))

	buf = appendTaggedUint(buf, tagUnsigned, uint32(maxFrame))
	buf = append(buf, appTagHeader(tagEnumerated, 1), segmentation)
	buf = appendTaggedUint(buf, tagUnsigned, uint32(vendorID))

	binary.BigEndian.PutUint16(buf[headerLenOffset:], uint16(len(buf)))

	return buf
}

// appTagHeader builds the initial octet of an application tag with a short
// payload length (0-4 bytes).
func appTagHeader(tag, length byte) byte {
	return tag<<4 | length
}

// ctxTagHeader builds the initial octet of a context tag.
func ctxTagHeader(tag, length byte) byte {
	return tag<<4 | 0x08 | length
}

// decodeTaggedUint reads an application-tagged unsigned/enumerated value of
// 1-4 payload bytes at off. It returns the value, the offset past it, and
// whether the read was well-formed.
func decodeTaggedUint(b []byte, off int, tag byte) (uint32, int, bool) {
	if off >= len(b) {
		return 0, off, false
	}

	h := b[off]
	if h&0x08 != 0 || h>>4 != tag {
		return 0, off, false
	}

	n := int(h & 0x07)
	if n < 1 || n > 4 {
		return 0, off, false
	}

	if off+1+n > len(b) {
		return 0, off, false
	}

	var v uint32
	for i := 0; i < n; i++ {
		v = v<<8 | uint32(b[off+1+i])
	}

	return v, off + 1 + n, true
}

// appendTaggedUint appends an application-tagged unsigned value using the
// minimal payload width.
func appendTaggedUint(buf []byte, tag byte, v uint32) []byte {
	n := uintWidth(v)
	buf = append(buf, appTagHeader(tag, byte(n)))

	for i := n - 1; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*i)))
	}

	return buf
}

// appendCtxUint appends a context-tagged unsigned value using the minimal
// payload width.
func appendCtxUint(buf []byte, tag byte, v uint32) []byte {
	n := uintWidth(v)
	buf = append(buf, ctxTagHeader(tag, byte(n)))

	for i := n - 1; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*i)))
	}

	return buf
}

func uintWidth(v uint32) int {
	switch {
	case v > 0xFFFFFF:
		return 4
	case v > 0xFFFF:
		return 3
	case v > 0xFF:
		return 2
	default:
		return 1
	}
}
