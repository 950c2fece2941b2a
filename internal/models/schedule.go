package models

// ScheduleDay is one day of a revision plan.
type ScheduleDay struct {
	Day   string   `json:"day"`
	Tasks []string `json:"tasks"`
	Focus string   `json:"focus"`
}

// Schedule is the parsed output of planning mode.
type Schedule struct {
	Days   []ScheduleDay `json:"schedule"`
	Advice string        `json:"advice"`
}

func (Schedule) Shape() OutputShape { return ShapeSchedule }

func (Schedule) isParsedResult() {}
