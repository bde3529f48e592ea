// Package chat defines the chat message model, the inbound validation rules and
// the persistence contract shared by every storage backend.
//
// A client frame is admitted in three steps: Decode parses one object or an
// array of objects into Drafts, Validate sanitizes each draft (control
// characters removed, NFC normalisation, trimming), checks that author and
// body are non-empty and at most MaxAuthorLength / MaxBodyLength runes, and
// stamps the server time. Client-supplied timestamps are ignored.
//
// Rejections are *ValidationError values of kind MalformedPayload, EmptyField or
// FieldTooLong and match ErrMalformedPayload, ErrEmptyField and ErrFieldTooLong
// with errors.Is.
package chat
