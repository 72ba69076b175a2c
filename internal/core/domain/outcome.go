package domain

// DocumentOutcome is the per-document result handed back to the batch loop.
// A failed outcome carries the reason; it is never an escaping error.
type DocumentOutcome struct {
	DocumentID string
	Succeeded  bool
	Reason     string
	Err        error
}

func Succeeded(documentID string) DocumentOutcome {
	return DocumentOutcome{DocumentID: documentID, Succeeded: true}
}

func Failed(documentID, reason string, err error) DocumentOutcome {
	return DocumentOutcome{DocumentID: documentID, Reason: reason, Err: err}
}
