package models

// These structs define the JSON payloads exchanged with the HTTP functions.

// DeleteTicketRequest is the input for the ticket-deleter function. Confirm
// carries the user's answer to the cancel/confirm prompt.
type DeleteTicketRequest struct {
	TicketID string `json:"ticketId"`
	Confirm  bool   `json:"confirm"`
}

// DeleteTicketResponse is the output of the ticket-deleter function.
type DeleteTicketResponse struct {
	Status       string   `json:"status"`
	TicketID     string   `json:"ticketId"`
	Found        bool     `json:"found"`
	NotesDeleted int      `json:"notesDeleted"`
	BlobsDeleted int      `json:"blobsDeleted"`
	Warnings     []string `json:"warnings,omitempty"`
}

// UploadPhotosResponse is the output of the photo-uploader function.
type UploadPhotosResponse struct {
	Status   string     `json:"status"`
	TicketID string     `json:"ticketId"`
	Photos   []PhotoRef `json:"photos"`
}

// ErrorResponse is written for any non-2xx answer.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
