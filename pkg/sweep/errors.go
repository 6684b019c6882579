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

package sweep

import "errors"

var (
	ErrConfigNil     = errors.New("config cannot be nil")
	ErrDiscovererNil = errors.New("discoverer cannot be nil")
	ErrDialerNil     = errors.New("dialer cannot be nil")
	ErrHarvesterNil  = errors.New("harvester cannot be nil")
	ErrSessionNil    = errors.New("session cannot be nil")
)
