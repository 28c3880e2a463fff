package mailbox

import (
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// InboxFor returns every email visible to the viewer, newest first: emails
// where the viewer is sender or recipient, minus those the viewer has
// soft-deleted.
func InboxFor(s Store, viewer string) []models.Email {
	out := FilterForViewer(s.GetAll(), viewer)
	SortNewestFirst(out)
	return out
}

// FilterForViewer keeps the emails the viewer participates in and has not
// soft-deleted. Order is preserved.
func FilterForViewer(emails []models.Email, viewer string) []models.Email {
	out := make([]models.Email, 0, len(emails))
	for _, email := range emails {
		if email.IsParticipant(viewer) && !email.IsDeletedFor(viewer) {
			out = append(out, email)
		}
	}
	return out
}

// InvestigationFor returns every email the agent participates in, newest
// first. Soft deletions are ignored: this is the audit view, deletion only
// hides mail from the deleting agent's own inbox.
func InvestigationFor(s Store, agent string) []models.Email {
	all := s.GetAll()
	out := make([]models.Email, 0, len(all))
	for _, email := range all {
		if email.IsParticipant(agent) {
			out = append(out, email)
		}
	}
	SortNewestFirst(out)
	return out
}
