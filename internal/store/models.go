package store

import "time"

// GroupKind classifies a conversation. Only group chats are in scope;
// anything else stays Unknown rather than being dropped.
type GroupKind int

const (
	KindUnknown GroupKind = iota
	KindGroup
)

func (k GroupKind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "unknown"
}

// chatKindGroup is the chat-type discriminator the source database uses for
// group conversations.
const chatKindGroup = 2

// FileReference is one media attachment as recorded by the chat application.
// The filesystem, not this record, is the source of truth for existence.
type FileReference struct {
	ReferenceID    int64     // message id, stable and unique per snapshot
	ClientSeq      int64     // informational
	MsgRandom      int64     // informational
	GroupID        string    // peer uid; joins GroupInfo for group chats
	ChatKind       int64     // raw chat-type discriminator
	ElementType    int64     // informational
	SubElementType int64     // informational
	FileName       string    // bare media file name on device
	RelPath        string    // device-relative path, not guaranteed to exist
	ThumbRelPath   string    // device-relative thumbnail path, may be empty
	SizeBytes      int64     // recorded size, informational
	SentAt         time.Time // UTC
}

// IsGroupChat reports whether the reference belongs to a group conversation.
func (f FileReference) IsGroupChat() bool {
	return f.ChatKind == chatKindGroup
}

// GroupInfo is one conversation group.
type GroupInfo struct {
	GroupID     string
	DisplayName string // may be empty in the source
	Remark      string
	OwnerUID    string
	CreatedAt   time.Time
	MaxMembers  int64
	MemberCount int64
	Departed    bool // operator is no longer a member
	Kind        GroupKind
}
