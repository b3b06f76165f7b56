// Package profile builds unified candidate profiles out of CV text, interview
// transcripts and professional-network records.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Job is a single work-history entry.
type Job struct {
	Title       string `json:"Job Title,omitempty" mapstructure:"Job Title"`
	Company     string `json:"Company,omitempty" mapstructure:"Company"`
	Duration    string `json:"Duration,omitempty" mapstructure:"Duration"`
	Description string `json:"Description,omitempty" mapstructure:"Description"`
}

// Education is a single degree entry.
type Education struct {
	Degree         string `json:"Degree" mapstructure:"Degree"`
	Institution    string `json:"Institution,omitempty" mapstructure:"Institution"`
	GraduationYear string `json:"Graduation Year,omitempty" mapstructure:"Graduation Year"`
}

// Experience keeps CV and network work history apart; only the CV history
// counts towards years of experience.
type Experience struct {
	CV      []Job `json:"cv"`
	Network []Job `json:"linkedin"`
}

// Profile is the unified candidate record.
type Profile struct {
	ID                 string      `json:"id,omitempty"`
	Name               string      `json:"name"`
	Skills             []string    `json:"skills"`
	Experience         Experience  `json:"experience"`
	Education          []Education `json:"education"`
	AdditionalInsights []string    `json:"additional_insights"`
}

// Degrees returns the non-empty degree names of the profile.
func (p *Profile) Degrees() []string {
	degrees := make([]string, 0, len(p.Education))
	for _, edu := range p.Education {
		if d := strings.TrimSpace(edu.Degree); d != "" {
			degrees = append(degrees, d)
		}
	}
	return degrees
}

// CVDurations returns the duration strings of the CV work history.
func (p *Profile) CVDurations() []string {
	durations := make([]string, 0, len(p.Experience.CV))
	for _, job := range p.Experience.CV {
		if d := strings.TrimSpace(job.Duration); d != "" {
			durations = append(durations, d)
		}
	}
	return durations
}

// Names lists profile names, used for log entries.
func Names(profiles []*Profile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

// WriteFile stores profiles as indented JSON.
func WriteFile(path string, profiles []*Profile) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(profiles); err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	return nil
}

// ReadFile loads profiles previously stored with WriteFile.
func ReadFile(path string) ([]*Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return nil, nil
	}

	var profiles []*Profile
	if err := json.NewDecoder(file).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("decode profiles from %s: %w", path, err)
	}
	return profiles, nil
}
