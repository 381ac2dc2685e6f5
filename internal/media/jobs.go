package media

import (
	"sync"

	"github.com/google/uuid"

	"github.com/campfireai/companion/internal/types"
)

// Job snapshots the full input of a failed generation so a retry runs against
// the original request, not whatever the session context has drifted to.
type Job struct {
	ID          string
	CharacterID string
	MediaID     int64
	Prompt      string
	Reference   types.ReferenceImage
}

type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]Job)}
}

func (r *jobRegistry) add(job Job) Job {
	job.ID = uuid.NewString()
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

func (r *jobRegistry) removeByMedia(characterID string, mediaID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, job := range r.jobs {
		if job.CharacterID == characterID && job.MediaID == mediaID {
			delete(r.jobs, id)
		}
	}
}
