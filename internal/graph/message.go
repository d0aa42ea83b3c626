// message.go -- sendMail message resource and the demo mail body builder.
package graph

import "html"

// sendMailRequest is the POST /me/sendMail payload.
type sendMailRequest struct {
	Message         *Message `json:"message"`
	SaveToSentItems bool     `json:"saveToSentItems"`
}

// Message mirrors the Graph message resource, limited to the fields this app sets.
type Message struct {
	Subject      string      `json:"subject"`
	Body         ItemBody    `json:"body"`
	ToRecipients []Recipient `json:"toRecipients"`
}

// ItemBody is the message body. ContentType is "Text" or "HTML".
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient wraps a single destination address.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is the address portion of a recipient.
type EmailAddress struct {
	Address string `json:"address"`
}

// NewMailMessage builds the demo email sent on behalf of displayName to the
// recipient the user typed into the form.
func NewMailMessage(displayName, recipient string) *Message {
	// Body is HTML; the display name must be escaped.
	content := "<h2>Congratulations " + html.EscapeString(displayName) + ",</h2>" +
		"<p>This is a message from the Graph mail sender sample. " +
		"You just sent an email on your own behalf using the Microsoft Graph API.</p>"

	return &Message{
		Subject: "Welcome to Microsoft Graph development",
		Body: ItemBody{
			ContentType: "HTML",
			Content:     content,
		},
		ToRecipients: []Recipient{
			{EmailAddress: EmailAddress{Address: recipient}},
		},
	}
}
