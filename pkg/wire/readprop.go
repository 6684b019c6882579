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

package wire

import (
	"encoding/binary"
	"fmt"
)

// PropertyID identifies a property of an object.
type PropertyID uint16

// Property identifiers the inventory subset reads.
const (
	PropDescription PropertyID = 28
	PropObjectList  PropertyID = 76
	PropObjectName  PropertyID = 77
	PropStateText   PropertyID = 110
	PropUnits       PropertyID = 117
)

// ArrayIndexNone requests the whole property instead of one array slot.
const ArrayIndexNone = -1

// Opening/closing context tag 3 brackets the value in a ReadProperty ACK.
const (
	openingTag3 = 0x3E
	closingTag3 = 0x3F
)

// EncodeReadProperty builds a confirmed ReadProperty request for one property
// of one object, optionally at a specific array index.
func EncodeReadProperty(invokeID uint8, obj ObjectID, prop PropertyID, arrayIndex int) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, frameMarker, funcUnicast, 0, 0,
		protocolVersion, npduControlExpectReply,
		pduConfirmed, maxAPDUFlags, invokeID, serviceReadProperty)

	buf = append(buf, ctxTagHeader(0, 4))
	buf = binary.BigEndian.AppendUint32(buf, packObjectID(obj))

	buf = appendCtxUint(buf, 1, uint32(prop))

	if arrayIndex != ArrayIndexNone {
		buf = appendCtxUint(buf, 2, uint32(arrayIndex))
	}

	binary.BigEndian.PutUint16(buf[headerLenOffset:], uint16(len(buf)))

	return buf
}

// DecodeReadPropertyACK parses the reply to a ReadProperty request and
// returns the decoded value. Unlike discovery decoding this is a matched
// unicast exchange, so every malformed case is an error rather than a silent
// discard.
func DecodeReadPropertyACK(datagram []byte, invokeID uint8) (Value, error) {
	if len(datagram) < apduOffset+3 {
		return Value{}, ErrResponseTooShort
	}

	if datagram[0] != frameMarker || (datagram[1] != funcUnicast && datagram[1] != funcBroadcast) {
		return Value{}, ErrMalformedResponse
	}

	if datagram[npduOffset] != protocolVersion || datagram[npduOffset+1] != npduControlNone {
		return Value{}, ErrMalformedResponse
	}

	apdu := datagram[apduOffset:]

	switch apdu[0] & 0xF0 {
	case pduComplexACK:
		if apdu[0]&0x08 != 0 {
			return Value{}, ErrSegmentedResponse
		}

		return decodeACKBody(apdu, invokeID)

	case pduError:
		return Value{}, decodeErrorPDU(apdu, invokeID)

	case pduReject:
		if apdu[1] != invokeID {
			return Value{}, ErrInvokeMismatch
		}

		return Value{}, fmt.Errorf("%w: reason=%d", ErrRequestRejected, apdu[2])

	case pduAbort:
		if apdu[1] != invokeID {
			return Value{}, ErrInvokeMismatch
		}

		return Value{}, fmt.Errorf("%w: reason=%d", ErrRequestAborted, apdu[2])

	default:
		return Value{}, fmt.Errorf("%w: pdu type 0x%02x", ErrMalformedResponse, apdu[0])
	}
}

func decodeACKBody(apdu []byte, invokeID uint8) (Value, error) {
	if apdu[1] != invokeID {
		return Value{}, ErrInvokeMismatch
	}

	if apdu[2] != serviceReadProperty {
		return Value{}, fmt.Errorf("%w: service 0x%02x", ErrServiceMismatch, apdu[2])
	}

	// Echoed object id, property id, and optional array index precede the
	// bracketed value.
	off, ok := skipContextTag(apdu, 3, 0)
	if !ok {
		return Value{}, ErrMalformedResponse
	}

	off, ok = skipContextTag(apdu, off, 1)
	if !ok {
		return Value{}, ErrMalformedResponse
	}

	if next, skipped := skipContextTag(apdu, off, 2); skipped {
		off = next
	}

	if off >= len(apdu) || apdu[off] != openingTag3 {
		return Value{}, ErrMalformedResponse
	}

	val, off, err := decodeAppValue(apdu, off+1)
	if err != nil {
		return Value{}, err
	}

	if off >= len(apdu) || apdu[off] != closingTag3 {
		return Value{}, ErrMalformedResponse
	}

	return val, nil
}

func decodeErrorPDU(apdu []byte, invokeID uint8) error {
	if apdu[1] != invokeID {
		return ErrInvokeMismatch
	}

	class, off, ok := decodeTaggedUint(apdu, 3, tagEnumerated)
	if !ok {
		return ErrErrorResponse
	}

	code, _, ok := decodeTaggedUint(apdu, off, tagEnumerated)
	if !ok {
		return ErrErrorResponse
	}

	return fmt.Errorf("%w: class=%d code=%d", ErrErrorResponse, class, code)
}

// skipContextTag advances past a context tag with the given number, handling
// the extended-length form. It reports false when the tag at off is absent or
// truncated.
func skipContextTag(b []byte, off int, num byte) (int, bool) {
	if off >= len(b) {
		return off, false
	}

	h := b[off]
	if h&0x08 == 0 || h>>4 != num {
		return off, false
	}

	n := int(h & 0x07)
	off++

	if n == 5 {
		if off >= len(b) {
			return off, false
		}

		n = int(b[off])
		off++
	}

	if off+n > len(b) {
		return off, false
	}

	return off + n, true
}

// EncodeReadPropertyACK builds a complex-ACK reply carrying val. Test device
// simulators answer requests with it; the live scanner only decodes.
func EncodeReadPropertyACK(invokeID uint8, obj ObjectID, prop PropertyID, arrayIndex int, val Value) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, frameMarker, funcUnicast, 0, 0,
		protocolVersion, npduControlNone,
		pduComplexACK, invokeID, serviceReadProperty)

	buf = append(buf, ctxTagHeader(0, 4))
	buf = binary.BigEndian.AppendUint32(buf, packObjectID(obj))

	buf = appendCtxUint(buf, 1, uint32(prop))

	if arrayIndex != ArrayIndexNone {
		buf = appendCtxUint(buf, 2, uint32(arrayIndex))
	}

	buf = append(buf, openingTag3)
	buf = appendAppValue(buf, val)
	buf = append(buf, closingTag3)

	binary.BigEndian.PutUint16(buf[headerLenOffset:], uint16(len(buf)))

	return buf
}

// EncodeReadPropertyError builds an error reply for the test device simulator.
func EncodeReadPropertyError(invokeID uint8, class, code uint8) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, frameMarker, funcUnicast, 0, 0,
		protocolVersion, npduControlNone,
		pduError, invokeID, serviceReadProperty)

	buf = append(buf, appTagHeader(tagEnumerated, 1), class)
	buf = append(buf, appTagHeader(tagEnumerated, 1), code)

	binary.BigEndian.PutUint16(buf[headerLenOffset:], uint16(len(buf)))

	return buf
}
