package models

import (
	"encoding/json"
	"fmt"
)

// Content is the typed, per-record-type payload a transformer carries over from its
// source. It turns into an open map only at the serialization boundary.
type Content interface {
	RecordType() RecordType
	Fields() map[string]interface{}
}

// NoteContent is the content of a NOTE record
type NoteContent struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

func (NoteContent) RecordType() RecordType { return RecordTypeNote }

func (c NoteContent) Fields() map[string]interface{} {
	f := map[string]interface{}{}
	putString(f, "title", c.Title)
	putString(f, "content", c.Content)
	putStrings(f, "tags", c.Tags)
	return f
}

// ProjectContent is the content of a PROJECT record
type ProjectContent struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (ProjectContent) RecordType() RecordType { return RecordTypeProject }

func (c ProjectContent) Fields() map[string]interface{} {
	f := map[string]interface{}{}
	putString(f, "name", c.Name)
	putString(f, "description", c.Description)
	putString(f, "status", c.Status)
	return f
}

// ContactContent is the content of a CONTACT record
type ContactContent struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (ContactContent) RecordType() RecordType { return RecordTypeContact }

func (c ContactContent) Fields() map[string]interface{} {
	f := map[string]interface{}{}
	putString(f, "name", c.Name)
	putString(f, "email", c.Email)
	putString(f, "company", c.Company)
	putString(f, "notes", c.Notes)
	return f
}

// ConversationContent is the content of a CONVERSATION record
type ConversationContent struct {
	Title        string   `json:"title,omitempty"`
	Participants []string `json:"participants,omitempty"`
	LastMessage  string   `json:"lastMessage,omitempty"`
	MessageCount int      `json:"messageCount,omitempty"`
}

func (ConversationContent) RecordType() RecordType { return RecordTypeConversation }

func (c ConversationContent) Fields() map[string]interface{} {
	f := map[string]interface{}{}
	putString(f, "title", c.Title)
	putStrings(f, "participants", c.Participants)
	putString(f, "lastMessage", c.LastMessage)
	if c.MessageCount != 0 {
		f["messageCount"] = c.MessageCount
	}
	return f
}

// GenericContent carries content for record types without a typed variant
type GenericContent map[string]interface{}

func (GenericContent) RecordType() RecordType { return "" }

func (c GenericContent) Fields() map[string]interface{} {
	f := make(map[string]interface{}, len(c))
	for k, v := range c {
		f[k] = v
	}
	return f
}

// DecodeContent rebuilds the typed content variant for recordType from its open-map form
func DecodeContent(recordType RecordType, fields map[string]interface{}) (Content, error) {
	switch recordType {
	case RecordTypeNote:
		var c NoteContent
		return c, decodeInto(fields, &c)
	case RecordTypeProject:
		var c ProjectContent
		return c, decodeInto(fields, &c)
	case RecordTypeContact:
		var c ContactContent
		return c, decodeInto(fields, &c)
	case RecordTypeConversation:
		var c ConversationContent
		return c, decodeInto(fields, &c)
	default:
		return copyGeneric(fields), nil
	}
}

// DecodeContentOrGeneric is DecodeContent that degrades to GenericContent when the stored
// fields no longer fit the typed variant.
func DecodeContentOrGeneric(recordType RecordType, fields map[string]interface{}) Content {
	c, err := DecodeContent(recordType, fields)
	if err != nil {
		return copyGeneric(fields)
	}
	return c
}

// ContentFields returns the open-map form of c, or an empty map for nil content
func ContentFields(c Content) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	return c.Fields()
}

func decodeInto(fields map[string]interface{}, dst interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal content fields: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode content fields: %w", err)
	}
	return nil
}

func copyGeneric(fields map[string]interface{}) GenericContent {
	return GenericContent(GenericContent(fields).Fields())
}

func putString(f map[string]interface{}, key, value string) {
	if value != "" {
		f[key] = value
	}
}

func putStrings(f map[string]interface{}, key string, values []string) {
	if len(values) > 0 {
		out := make([]string, len(values))
		copy(out, values)
		f[key] = out
	}
}
