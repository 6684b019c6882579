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
	"math"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueEnumerated
	ValueObjectID
)

// Value is the tagged variant a property read decodes into. A harvested
// attribute's type varies with the application tag on the wire (character
// string, real/unsigned, enumerated, object identifier), so downstream code
// switches on Kind instead of probing runtime types.
type Value struct {
	Kind       ValueKind
	Text       string
	Number     float64
	Enumerated uint32
	Object     ObjectID
}

// String renders the value for logs and change comparison.
func (v Value) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ValueEnumerated:
		return strconv.FormatUint(uint64(v.Enumerated), 10)
	case ValueObjectID:
		return fmt.Sprintf("%d:%d", v.Object.Type, v.Object.Instance)
	default:
		return ""
	}
}

// Uint returns the value as an unsigned integer for count and code reads.
func (v Value) Uint() (uint32, bool) {
	switch v.Kind {
	case ValueNumber:
		if v.Number < 0 || v.Number > math.MaxUint32 || v.Number != math.Trunc(v.Number) {
			return 0, false
		}

		return uint32(v.Number), true
	case ValueEnumerated:
		return v.Enumerated, true
	default:
		return 0, false
	}
}

// decodeAppValue reads one application-tagged value at off, returning the
// value and the offset past it.
func decodeAppValue(b []byte, off int) (Value, int, error) {
	if off >= len(b) {
		return Value{}, off, ErrResponseTooShort
	}

	h := b[off]
	if h&0x08 != 0 {
		return Value{}, off, fmt.Errorf("%w: context tag 0x%02x where value expected", ErrUnsupportedTag, h)
	}

	tag := h >> 4
	n := int(h & 0x07)
	off++

	// Extended length octet for payloads of 5 bytes and up.
	if n == 5 {
		if off >= len(b) {
			return Value{}, off, ErrResponseTooShort
		}

		n = int(b[off])
		off++
	}

	if off+n > len(b) {
		return Value{}, off, ErrResponseTooShort
	}

	payload := b[off : off+n]
	end := off + n

	switch tag {
	case tagUnsigned:
		if n < 1 || n > 4 {
			return Value{}, off, fmt.Errorf("%w: unsigned of %d bytes", ErrUnsupportedTag, n)
		}

		var v uint32
		for _, octet := range payload {
			v = v<<8 | uint32(octet)
		}

		return Value{Kind: ValueNumber, Number: float64(v)}, end, nil

	case tagReal:
		if n != 4 {
			return Value{}, off, fmt.Errorf("%w: real of %d bytes", ErrUnsupportedTag, n)
		}

		bits := binary.BigEndian.Uint32(payload)

		return Value{Kind: ValueNumber, Number: float64(math.Float32frombits(bits))}, end, nil

	case tagCharString:
		// First payload octet is the character set; the scanner treats the
		// remainder as UTF-8 and leaves decode-failure handling to the
		// sanitization layer.
		if n < 1 {
			return Value{}, off, fmt.Errorf("%w: empty character string payload", ErrUnsupportedTag)
		}

		return Value{Kind: ValueText, Text: string(payload[1:])}, end, nil

	case tagEnumerated:
		if n < 1 || n > 4 {
			return Value{}, off, fmt.Errorf("%w: enumerated of %d bytes", ErrUnsupportedTag, n)
		}

		var v uint32
		for _, octet := range payload {
			v = v<<8 | uint32(octet)
		}

		return Value{Kind: ValueEnumerated, Enumerated: v}, end, nil

	case tagObjectID:
		if n != 4 {
			return Value{}, off, fmt.Errorf("%w: object id of %d bytes", ErrUnsupportedTag, n)
		}

		return Value{Kind: ValueObjectID, Object: unpackObjectID(binary.BigEndian.Uint32(payload))}, end, nil

	default:
		return Value{}, off, fmt.Errorf("%w: tag %d", ErrUnsupportedTag, tag)
	}
}

// appendAppValue appends val as an application-tagged value. Whole
// non-negative numbers encode as unsigned, any other number as a real;
// the live scanner only decodes, this is for the test device simulator.
func appendAppValue(buf []byte, val Value) []byte {
	switch val.Kind {
	case ValueText:
		payload := append([]byte{0x00}, []byte(val.Text)...) // charset 0 = UTF-8
		if len(payload) < 5 {
			buf = append(buf, appTagHeader(tagCharString, byte(len(payload))))
		} else {
			buf = append(buf, appTagHeader(tagCharString, 5), byte(len(payload)))
		}

		return append(buf, payload...)

	case ValueNumber:
		if val.Number >= 0 && val.Number <= math.MaxUint32 && val.Number == math.Trunc(val.Number) {
			return appendTaggedUint(buf, tagUnsigned, uint32(val.Number))
		}

		buf = append(buf, appTagHeader(tagReal, 4))

		return binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(val.Number)))

	case ValueEnumerated:
		return appendTaggedUint(buf, tagEnumerated, val.Enumerated)

	case ValueObjectID:
		buf = append(buf, appTagHeader(tagObjectID, 4))

		return binary.BigEndian.AppendUint32(buf, packObjectID(val.Object))

	default:
		return buf
	}
}
