package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	conversationPrefix = "convrec"
	messagePrefix      = "convmsg"
	titlePrefix        = "convttl"
	chunkPrefix        = "chunk"
	fileRecordPrefix   = "filerec"
)

// makeConversationKey generates a key for a conversation record by id.
func makeConversationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", conversationPrefix, id))
}

// makeMessageKey generates a composite key for a message.
// Format: prefix:conversationID: followed by the ordinal encoded BigEndian
// so lexicographic iteration yields append order.
func makeMessageKey(conversationID string, ordinal uint64) []byte {
	prefix := fmt.Sprintf("%s:%s:", messagePrefix, conversationID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], ordinal)
	return buf
}

// makeMessagePrefix generates the iteration prefix for a conversation's messages.
func makeMessagePrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", messagePrefix, conversationID))
}

// makeTitleKey generates a key for a cached conversation title.
func makeTitleKey(conversationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", titlePrefix, conversationID))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:docID:chunkID, so all chunks of one document share a prefix
// and can be removed with a single prefix scan.
func makeChunkKey(docID, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkPrefix, docID, chunkID))
}

// makeChunkDocPrefix generates the iteration prefix for a document's chunks.
func makeChunkDocPrefix(docID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, docID))
}

// makeFileRecordKey generates a key for an ingested file record by docID.
func makeFileRecordKey(docID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", fileRecordPrefix, docID))
}
