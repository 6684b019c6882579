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

import "errors"

var (
	// Property response parsing errors
	ErrResponseTooShort  = errors.New("property response too short")
	ErrMalformedResponse = errors.New("malformed property response")
	ErrInvokeMismatch    = errors.New("response invoke id does not match request")
	ErrServiceMismatch   = errors.New("unexpected service in response")
	ErrUnsupportedTag    = errors.New("unsupported application tag")
	ErrSegmentedResponse = errors.New("segmented responses not supported")

	// Device-reported failures
	ErrErrorResponse   = errors.New("device returned an error")
	ErrRequestRejected = errors.New("device rejected the request")
	ErrRequestAborted  = errors.New("device aborted the request")
)
