package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types. No prefix is a prefix of another.
const (
	postPrefix        = "pst:"
	postCreatedPrefix = "pstc:"
	mediaPrefix       = "med:"
)

// makePostKey generates a key for a post by ID.
func makePostKey(id string) []byte {
	return []byte(postPrefix + id)
}

// makePostCreatedKey generates a composite key for the creation-time index.
// Format: prefix + timestamp + id
func makePostCreatedKey(createdOn time.Time, id string) []byte {
	prefixBytes := []byte(postCreatedPrefix)
	buf := make([]byte, len(prefixBytes)+8+len(id))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order with the sign bit flipped so lexicographic
	// order matches chronological order
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdOn.UnixMicro())^(1<<63))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makeMediaPrefix generates the key prefix shared by all media of a post.
// The terminating zero byte keeps post "a" from matching media of post "ab".
func makeMediaPrefix(postID string) []byte {
	buf := make([]byte, 0, len(mediaPrefix)+len(postID)+1)
	buf = append(buf, mediaPrefix...)
	buf = append(buf, postID...)
	return append(buf, 0)
}

// makeMediaKey generates a key for the media item at position within a post.
// Format: prefix + postID + 0x00 + position
func makeMediaKey(postID string, position int) []byte {
	prefix := makeMediaPrefix(postID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(position))
	return buf
}

// prefixEnd returns a key that sorts after every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix)+1)
	copy(end, prefix)
	end[len(prefix)] = 0xFF
	return end
}
