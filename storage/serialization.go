// Copyright 2025 Faktenforum
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

package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/faktenforum/checkbot-rag/core"
)

// MarshalID encodes a chunk ID as 8 big-endian bytes so keys sort numerically.
func MarshalID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID decodes an ID written by MarshalID.
func UnmarshalID(data []byte) (int64, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

// storedClaim carries the raw payload, which ClaimRecord hides from JSON output.
type storedClaim struct {
	core.ClaimRecord
	Raw []byte `json:"raw,omitempty"`
}

// MarshalClaim serializes a ClaimRecord including its raw payload.
func MarshalClaim(record *core.ClaimRecord) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(storedClaim{ClaimRecord: *record, Raw: record.RawData})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalClaim deserializes a ClaimRecord written by MarshalClaim.
func UnmarshalClaim(data []byte) (*core.ClaimRecord, error) {
	var stored storedClaim
	if err := sonic.ConfigStd.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	record := stored.ClaimRecord
	record.RawData = stored.Raw
	return &record, nil
}

// MarshalChunk serializes a Chunk including its embedding.
func MarshalChunk(chunk *core.Chunk) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalChunk deserializes a Chunk.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	var chunk core.Chunk
	if err := sonic.ConfigStd.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

// MarshalJob serializes an ImportJob.
func MarshalJob(job *core.ImportJob) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalJob deserializes an ImportJob.
func UnmarshalJob(data []byte) (*core.ImportJob, error) {
	var job core.ImportJob
	if err := sonic.ConfigStd.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &job, nil
}
