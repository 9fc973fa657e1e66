// Package messages builds outbound message parameters and the shared
// menu keyboards. Handlers never touch the transport structs directly.
package messages

import "ClipPay/internal/core/ports"

// Builder accumulates SendMessageParams through a fluent chain. The
// zero parse mode is HTML because almost every card uses bold tags;
// plain-text sends opt out with WithParseMode("").
type Builder struct {
	params ports.SendMessageParams
}

// NewBuilder starts a message for the given chat.
func NewBuilder(chatID int64) *Builder {
	b := &Builder{}
	b.params.ChatID = chatID
	b.params.ParseMode = "HTML"
	return b
}

// WithText sets the message text.
func (b *Builder) WithText(text string) *Builder {
	b.params.Text = text
	return b
}

// WithParseMode overrides the default parse mode. Pass "" for plain
// text.
func (b *Builder) WithParseMode(mode string) *Builder {
	b.params.ParseMode = mode
	return b
}

// WithRemoveKeyboard clears any reply keyboard on the user's side.
// Mutually exclusive with the keyboard setters; last call wins.
func (b *Builder) WithRemoveKeyboard() *Builder {
	b.params.RemoveKeyboard = true
	b.params.ReplyMarkup = nil
	return b
}

// WithContactButton shows a one-button reply keyboard that shares the
// user's own contact. Used only by the registration phone step.
func (b *Builder) WithContactButton(text string) *Builder {
	return b.withMarkup(false, [][]ports.Button{
		{{Text: text, RequestContact: true}},
	})
}

// WithInlineButtons attaches inline buttons in the given row layout.
func (b *Builder) WithInlineButtons(rows [][]ports.Button) *Builder {
	return b.withMarkup(true, rows)
}

// WithReplyButtons lays a flat list of labels out as a reply keyboard
// with the given number of columns.
func (b *Builder) WithReplyButtons(labels []string, columns int) *Builder {
	if columns < 1 {
		columns = 1
	}
	rows := make([][]ports.Button, 0, (len(labels)+columns-1)/columns)
	for len(labels) > 0 {
		n := columns
		if n > len(labels) {
			n = len(labels)
		}
		row := make([]ports.Button, n)
		for i, label := range labels[:n] {
			row[i] = ports.Button{Text: label}
		}
		rows = append(rows, row)
		labels = labels[n:]
	}
	return b.withMarkup(false, rows)
}

func (b *Builder) withMarkup(inline bool, rows [][]ports.Button) *Builder {
	b.params.RemoveKeyboard = false
	b.params.ReplyMarkup = &ports.ReplyMarkup{IsInline: inline, Buttons: rows}
	return b
}

// Build returns the accumulated parameters.
func (b *Builder) Build() ports.SendMessageParams {
	return b.params
}
