package envelope

import (
	"github.com/handrail/handrail/model/approval"
)

// Kind discriminates the parse result.
type Kind int

const (
	// KindIgnore means the frame is noise: unparseable, unrecognised or
	// missing identity. Never an error.
	KindIgnore Kind = iota

	// KindUpsert carries a fully defaulted approval item to replace-or-insert.
	KindUpsert

	// KindRemove carries the composite key of a resolved approval.
	KindRemove
)

// Instruction is the tagged result of parsing one frame.
type Instruction struct {
	Kind Kind

	// Item is set only for KindUpsert.
	Item *approval.Item

	// Key is set for KindUpsert and KindRemove.
	Key approval.Key

	// Reason explains a KindIgnore for debug logging; empty otherwise.
	Reason string
}

// Ignore builds a KindIgnore instruction with a debug reason.
func Ignore(reason string) Instruction {
	return Instruction{Kind: KindIgnore, Reason: reason}
}

// Upsert builds a KindUpsert instruction for the given item.
func Upsert(item *approval.Item) Instruction {
	return Instruction{Kind: KindUpsert, Item: item, Key: item.Key()}
}

// Remove builds a KindRemove instruction for the given key.
func Remove(key approval.Key) Instruction {
	return Instruction{Kind: KindRemove, Key: key}
}
