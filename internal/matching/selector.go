package matching

import "sort"

// Options tunes the selector.
type Options struct {
	// DefaultCapacity caps students per tutor when the tutor has no own limit.
	// Zero means unbounded.
	DefaultCapacity int
	// AssignedStudents are students already holding a match from an earlier
	// run. They receive no new assignment and are not reported unmatched.
	AssignedStudents map[string]bool
	// TutorLoad counts the students each tutor already holds. It counts
	// against capacity, and a tutor with load is not reported unmatched.
	TutorLoad map[string]int
}

// Assignment is a chosen pairing.
type Assignment struct {
	TutorID    string
	StudentID  string
	Instrument Instrument
	Window     Window
	Score      int
}

// Selection is the selector output. Assignments are sorted by tutor ID then
// student ID; unmatched ID lists are sorted ascending.
type Selection struct {
	Assignments       []Assignment
	UnmatchedStudents []string
	UnmatchedTutors   []string
}

// Select assigns each student at most one tutor. Pairs are taken greedily by
// descending score; equal scores go to the lower student ID first and, for one
// student, to the lower tutor ID. A tutor stops receiving students once their
// capacity is reached. Prior assignments from opts are honored before any new
// pair is taken. Identical input always yields identical output.
func Select(pairs []CandidatePair, tutors, students []Participant, opts Options) Selection {
	capacity := make(map[string]int, len(tutors))
	for _, tutor := range tutors {
		limit := tutor.Capacity
		if limit <= 0 {
			limit = opts.DefaultCapacity
		}
		capacity[tutor.ID] = limit
	}

	ordered := make([]CandidatePair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.TutorID < b.TutorID
	})

	assigned := make(map[string]bool, len(students)+len(opts.AssignedStudents))
	for id, ok := range opts.AssignedStudents {
		assigned[id] = ok
	}
	load := make(map[string]int, len(tutors))
	for id, n := range opts.TutorLoad {
		load[id] = n
	}
	var assignments []Assignment
	for _, pair := range ordered {
		if assigned[pair.StudentID] {
			continue
		}
		limit, known := capacity[pair.TutorID]
		if !known {
			limit = opts.DefaultCapacity
		}
		if limit > 0 && load[pair.TutorID] >= limit {
			continue
		}
		assigned[pair.StudentID] = true
		load[pair.TutorID]++
		assignments = append(assignments, Assignment{
			TutorID:    pair.TutorID,
			StudentID:  pair.StudentID,
			Instrument: pair.Instrument,
			Window:     pair.Window,
			Score:      pair.Score,
		})
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].TutorID != assignments[j].TutorID {
			return assignments[i].TutorID < assignments[j].TutorID
		}
		return assignments[i].StudentID < assignments[j].StudentID
	})

	selection := Selection{Assignments: assignments}
	for _, student := range students {
		if !assigned[student.ID] {
			selection.UnmatchedStudents = append(selection.UnmatchedStudents, student.ID)
		}
	}
	for _, tutor := range tutors {
		if load[tutor.ID] == 0 {
			selection.UnmatchedTutors = append(selection.UnmatchedTutors, tutor.ID)
		}
	}
	sort.Strings(selection.UnmatchedStudents)
	sort.Strings(selection.UnmatchedTutors)
	return selection
}
