package mailbox

import (
	"sort"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// Store is the read/write surface the mailbox views need. *store.EmailStore
// satisfies it.
type Store interface {
	GetAll() []models.Email
	GetByID(id string) (models.Email, bool)
	Update(email models.Email) (models.Email, bool)
}

// FindThreadRoot walks parent references up from the email until it reaches a
// message with no parent, a dangling reference, or a node already visited.
// Reply chains are client-supplied data, so a cycle is possible; the walk is
// iterative with a visited set and terminates on any input. The email at the
// point the walk stops is the root.
func FindThreadRoot(s Store, email models.Email) models.Email {
	visited := map[string]struct{}{email.ID: {}}
	current := email
	for current.IsResponseTo != nil {
		parentID := *current.IsResponseTo
		if _, seen := visited[parentID]; seen {
			break
		}
		parent, exists := s.GetByID(parentID)
		if !exists {
			break
		}
		visited[parentID] = struct{}{}
		current = parent
	}
	return current
}

// FindThreadDescendants collects the root and every transitive reply to it.
// Membership grows until a full scan adds nothing, so deep and branching
// chains are both covered. Dangling or cyclic references simply never join.
func FindThreadDescendants(s Store, root models.Email) []models.Email {
	all := s.GetAll()
	inThread := map[string]struct{}{root.ID: {}}
	for {
		grew := false
		for _, email := range all {
			if _, member := inThread[email.ID]; member {
				continue
			}
			if email.IsResponseTo == nil {
				continue
			}
			if _, parentIn := inThread[*email.IsResponseTo]; parentIn {
				inThread[email.ID] = struct{}{}
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	thread := make([]models.Email, 0, len(inThread))
	for _, email := range all {
		if _, member := inThread[email.ID]; member {
			thread = append(thread, email)
		}
	}
	return thread
}

// BuildThread returns every member of the email's thread except the email
// itself, newest first. Soft deletions do not apply here: deletion hides mail
// from one inbox, never from conversation reconstruction.
func BuildThread(s Store, email models.Email) []models.Email {
	root := FindThreadRoot(s, email)
	members := FindThreadDescendants(s, root)

	out := make([]models.Email, 0, len(members))
	for _, member := range members {
		if member.ID == email.ID {
			continue
		}
		out = append(out, member)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders emails by timestamp descending. The timestamp format
// is fixed-width so string comparison is chronological; the sort is stable so
// equal timestamps keep their stored order.
func SortNewestFirst(emails []models.Email) {
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Timestamp > emails[j].Timestamp
	})
}
