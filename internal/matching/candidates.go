package matching

import "sort"

// CandidatePair is a feasible tutor/student combination. It is never persisted.
type CandidatePair struct {
	TutorID    string
	StudentID  string
	Instrument Instrument
	// Window is the earliest overlap between the two participants.
	Window Window
	// Score counts overlapping (student window, tutor window) pairs.
	Score int
}

type tutorEntry struct {
	participant Participant
	byDay       map[int][]Window
}

// BuildCandidates returns every (tutor, student) pair that shares an instrument
// and has at least one availability overlap of non-zero length. Tutors are
// indexed by instrument, then by day, so only tutors sharing both with a student
// have their windows compared. Ineligible participants are ignored. The result
// is sorted by student ID, then tutor ID.
func BuildCandidates(tutors, students []Participant) []CandidatePair {
	entries := make([]*tutorEntry, 0, len(tutors))
	byInstrument := make(map[string][]*tutorEntry)
	for _, tutor := range tutors {
		if !tutor.Eligible {
			continue
		}
		entry := &tutorEntry{participant: tutor, byDay: make(map[int][]Window)}
		for _, window := range tutor.Windows {
			entry.byDay[window.Day] = append(entry.byDay[window.Day], window)
		}
		entries = append(entries, entry)
		for _, instrument := range tutor.Instruments {
			byInstrument[instrument.Key()] = append(byInstrument[instrument.Key()], entry)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	var pairs []CandidatePair
	for _, student := range students {
		if !student.Eligible {
			continue
		}
		// The first instrument in the student's declared order that a tutor
		// teaches becomes the agreed instrument for that pair.
		agreed := make(map[*tutorEntry]Instrument)
		var order []*tutorEntry
		for _, instrument := range student.Instruments {
			for _, entry := range byInstrument[instrument.Key()] {
				if _, ok := agreed[entry]; ok {
					continue
				}
				agreed[entry] = instrument
				order = append(order, entry)
			}
		}

		for _, entry := range order {
			pair, ok := pairWindows(student, entry)
			if !ok {
				continue
			}
			pair.Instrument = agreed[entry]
			pairs = append(pairs, pair)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].StudentID != pairs[j].StudentID {
			return pairs[i].StudentID < pairs[j].StudentID
		}
		return pairs[i].TutorID < pairs[j].TutorID
	})
	return pairs
}

func pairWindows(student Participant, tutor *tutorEntry) (CandidatePair, bool) {
	pair := CandidatePair{TutorID: tutor.participant.ID, StudentID: student.ID}
	found := false
	for _, studentWindow := range student.Windows {
		for _, tutorWindow := range tutor.byDay[studentWindow.Day] {
			overlap, ok := studentWindow.Overlap(tutorWindow)
			if !ok {
				continue
			}
			pair.Score++
			if !found || overlap.Before(pair.Window) {
				pair.Window = overlap
				found = true
			}
		}
	}
	return pair, found
}
