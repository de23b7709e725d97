package models

import "time"

// ScheduledTask is one day of a career roadmap
type ScheduledTask struct {
	Day       int    `json:"day"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// CareerGoal is the generated plan attached to a career-copilot session
type CareerGoal struct {
	MainGoal  string          `json:"main_goal"`
	Tasks     []ScheduledTask `json:"tasks"`
	Logs      []string        `json:"logs"`
	StartDate time.Time       `json:"start_date"`
}

// Clone returns a deep copy of the goal
func (g CareerGoal) Clone() CareerGoal {
	c := g
	if g.Tasks != nil {
		c.Tasks = make([]ScheduledTask, len(g.Tasks))
		copy(c.Tasks, g.Tasks)
	}
	if g.Logs != nil {
		c.Logs = make([]string, len(g.Logs))
		copy(c.Logs, g.Logs)
	}
	return c
}
