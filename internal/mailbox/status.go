package mailbox

// MarkRead records that the viewer has read the email. Idempotent; reports
// false only if the email is no longer stored.
func MarkRead(s Store, id, viewer string) bool {
	email, exists := s.GetByID(id)
	if !exists {
		return false
	}
	if email.IsReadBy(viewer) {
		return true
	}
	email.MarkReadBy(viewer)
	_, updated := s.Update(email)
	return updated
}

// MarkDeleted soft-deletes the email for the viewer. The record itself stays
// stored and visible to other participants.
func MarkDeleted(s Store, id, viewer string) bool {
	email, exists := s.GetByID(id)
	if !exists {
		return false
	}
	if email.IsDeletedFor(viewer) {
		return true
	}
	email.MarkDeletedBy(viewer)
	_, updated := s.Update(email)
	return updated
}
