package badger

import (
	"github.com/faktenforum/checkbot-rag/storage"
)

// Key prefixes for different data types
const (
	claimPrefix         = "claim:"
	claimExternalPrefix = "claimext:"
	claimShortPrefix    = "claimshort:"
	claimChunkPrefix    = "claimchunk:"
	chunkPrefix         = "chunk:"
	chunkIDSeq          = "chunkseq"
	jobPrefix           = "job:"
)

// makeClaimKey generates a key for a claim by internal ID.
func makeClaimKey(id string) []byte {
	return []byte(claimPrefix + id)
}

// makeClaimExternalKey generates the external ID index key.
func makeClaimExternalKey(externalID string) []byte {
	return []byte(claimExternalPrefix + externalID)
}

// makeClaimShortKey generates the short ID index key.
func makeClaimShortKey(shortID string) []byte {
	return []byte(claimShortPrefix + shortID)
}

// makePartialClaimChunkKey generates the prefix of all chunk index keys of a claim.
// Format: prefix:claimID:
func makePartialClaimChunkKey(claimID string) []byte {
	return []byte(claimChunkPrefix + claimID + ":")
}

// makeClaimChunkKey generates a composite key for the claim → chunk index.
// Format: prefix:claimID:chunkID
func makeClaimChunkKey(claimID string, chunkID int64) []byte {
	return append(makePartialClaimChunkKey(claimID), storage.MarshalID(chunkID)...)
}

// makeChunkKey generates a key for a chunk. IDs are big-endian so chunks
// iterate in ascending ID order.
func makeChunkKey(id int64) []byte {
	return append([]byte(chunkPrefix), storage.MarshalID(id)...)
}

// chunkIDFromKey extracts the chunk ID from a chunk or claim-chunk key.
func chunkIDFromKey(key []byte) (int64, error) {
	if len(key) < 8 {
		return 0, storage.ErrTruncatedData
	}
	return storage.UnmarshalID(key[len(key)-8:])
}

// makeJobKey generates a key for an import job.
func makeJobKey(id string) []byte {
	return []byte(jobPrefix + id)
}
