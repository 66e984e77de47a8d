package habit

import (
	"fmt"
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

type Type string

const (
	Routine   Type = "routine"
	Challenge Type = "challenge"
)

// RoutineGoal is the rolling completion goal for routine habits.
const RoutineGoal = 30

type Status string

const (
	StatusCheckIn       Status = "Check-in"
	StatusDailyAchieved Status = "DailyAchieved"
	StatusOnTrack       Status = "OnTrack"
	StatusCompleted     Status = "Completed"
	StatusUpcoming      Status = "Upcoming"
)

type Habit struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Frequency   Frequency `json:"frequency"`
	TimeOfDay   string    `json:"time_of_day,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ScheduleSpec is the stored, loosely typed schedule. Parse it with
// schedule.Parse before reasoning about it.
type ScheduleSpec struct {
	StartDate    string   `json:"start_date,omitempty"`
	Repeat       string   `json:"repeat"`
	SelectedDays []string `json:"selected_days,omitempty"`
	Time         string   `json:"time,omitempty"`
}

type Detail struct {
	HabitID             string        `json:"habit_id"`
	Type                Type          `json:"habit_type"`
	Schedule            *ScheduleSpec `json:"schedule,omitempty"`
	EndDate             string        `json:"end_date,omitempty"`
	ChallengeLength     int           `json:"challenge_length,omitempty"`
	TimePerSession      int           `json:"time_per_session,omitempty"`
	Reminder            string        `json:"reminder,omitempty"`
	ShowOnScheduledTime bool          `json:"show_on_scheduled_time"`
	Tags                []string      `json:"tags"`
}

type Completion struct {
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	Value       int       `json:"value"`
}

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type View struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         Status    `json:"status"`
	Progress       Progress  `json:"progress"`
	Streak         int       `json:"streak"`
	Frequency      Frequency `json:"frequency"`
	FrequencyDays  []string  `json:"frequency_days"`
	NextOccurrence string    `json:"next_occurrence"`
	Type           Type      `json:"habit_type"`
	IsActive       bool      `json:"is_active"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"created_at"`
}

type Summary struct {
	Habits []View `json:"habits"`
	Total  int    `json:"total"`
	Active int    `json:"active"`
}

// Insight is the narrative returned by the insight service. Its text fields
// are stored as received.
type Insight struct {
	HabitID         string    `json:"habit_id"`
	CompletionRate  float64   `json:"completion_rate"`
	Analysis        string    `json:"analysis"`
	Trends          string    `json:"trends"`
	Recommendations string    `json:"recommendations"`
	Conclusion      string    `json:"conclusion"`
	GeneratedAt     time.Time `json:"generated_at"`
}

const (
	maxNameLength        = 40
	maxDescriptionLength = 1024
)

func (h Habit) Validate() error {
	if len(h.Name) == 0 || len(h.Name) > maxNameLength {
		return fmt.Errorf("bad habit name: must be 1-%d characters", maxNameLength)
	}
	if len(h.Description) > maxDescriptionLength {
		return fmt.Errorf("bad habit description: must be 0-%d characters", maxDescriptionLength)
	}
	if !h.Frequency.Valid() {
		return fmt.Errorf("bad frequency %q: must be daily, weekly or monthly", h.Frequency)
	}
	if h.TimeOfDay != "" {
		if _, err := time.Parse("15:04", h.TimeOfDay); err != nil {
			return fmt.Errorf("bad time of day %q: expected HH:MM", h.TimeOfDay)
		}
	}
	return nil
}

func (d Detail) Validate() error {
	switch d.Type {
	case Routine:
	case Challenge:
		if d.ChallengeLength <= 0 {
			return fmt.Errorf("challenge length must be positive for challenge habits")
		}
	default:
		return fmt.Errorf("bad habit type %q: must be routine or challenge", d.Type)
	}
	if d.Schedule != nil && d.Schedule.StartDate != "" {
		if _, err := time.Parse(time.DateOnly, d.Schedule.StartDate); err != nil {
			return fmt.Errorf("bad schedule start date %q: expected YYYY-MM-DD", d.Schedule.StartDate)
		}
	}
	return nil
}

// Amount returns the completion value, treating unset values as 1.
func (c Completion) Amount() int {
	if c.Value <= 0 {
		return 1
	}
	return c.Value
}
