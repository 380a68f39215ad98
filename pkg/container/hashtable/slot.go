// Copyright 2021 Matrix Origin
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

package hashtable

// Slot is the handle returned by StringIntHashMap.At. It holds the key,
// not a pointer into bucket storage, and resolves the key on every call,
// so it stays usable across Grow and Clear. Set and Add re-insert a key
// that has been removed in the meantime.
type Slot struct {
	table *StringIntHashMap
	key   string
}

func (s Slot) Key() string {
	return s.key
}

func (s Slot) Value() (int64, bool) {
	return s.table.Find(s.key)
}

func (s Slot) Set(v int64) {
	s.table.Insert(s.key, v)
}

// Add increments the value by delta and returns the new value.
func (s Slot) Add(delta int64) int64 {
	pos, idx := s.table.findCell(s.key)
	if idx >= 0 {
		s.table.buckets[pos][idx].Mapped += delta
		return s.table.buckets[pos][idx].Mapped
	}
	s.table.Insert(s.key, delta)
	return delta
}
