package room

import (
	"cmp"
	"slices"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type queueEntry struct {
	track  domain.Track
	voters map[string]struct{}
	seq    uint64 // порядок добавления, tie-break при равных голосах
}

func (e *queueEntry) view() domain.Track {
	t := e.track
	t.Votes = len(e.voters)
	return t
}

// queue holds the votable tracks only; the playing track lives in playback.
type queue struct {
	entries []*queueEntry // insertion order
	byID    map[string]*queueEntry
	nextSeq uint64
}

func newQueue() queue {
	return queue{byID: make(map[string]*queueEntry)}
}

func (q *queue) add(id string, desc domain.TrackDescriptor, submitterID string, now time.Time) *queueEntry {
	q.nextSeq++
	src := desc.Source
	if src == "" {
		src = domain.SourceUserAdded
	}
	e := &queueEntry{
		track: domain.Track{
			ID:          id,
			Title:       desc.Title,
			Artist:      desc.Artist,
			Duration:    desc.Duration,
			Source:      src,
			SubmitterID: submitterID,
			AddedAt:     now,
		},
		voters: make(map[string]struct{}),
		seq:    q.nextSeq,
	}
	q.entries = append(q.entries, e)
	q.byID[id] = e
	return e
}

func (q *queue) get(id string) (*queueEntry, bool) {
	e, ok := q.byID[id]
	return e, ok
}

// compareEntries orders by votes desc, then insertion asc.
func compareEntries(a, b *queueEntry) int {
	if c := cmp.Compare(len(b.voters), len(a.voters)); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// best is the head of ordered(); nil when the queue is empty.
func (q *queue) best() *queueEntry {
	var top *queueEntry
	for _, e := range q.entries {
		if top == nil || compareEntries(e, top) < 0 {
			top = e
		}
	}
	return top
}

func (q *queue) ordered() []domain.Track {
	sorted := slices.Clone(q.entries)
	slices.SortFunc(sorted, compareEntries)
	out := make([]domain.Track, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.view())
	}
	return out
}

func (q *queue) remove(id string) {
	if _, ok := q.byID[id]; !ok {
		return
	}
	delete(q.byID, id)
	q.entries = slices.DeleteFunc(q.entries, func(e *queueEntry) bool { return e.track.ID == id })
}

// dropVoter removes a departed participant's votes.
func (q *queue) dropVoter(participantID string) {
	for _, e := range q.entries {
		delete(e.voters, participantID)
	}
}
