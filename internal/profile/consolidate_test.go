package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/profile-search/internal/logger"
)

// stubGenerator answers CV prompts and interview prompts from lookup tables
// keyed by a marker contained in the source text.
type stubGenerator struct {
	mu         sync.Mutex
	cv         map[string]string
	interviews map[string]string
	err        error
	systems    []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, system)

	if s.err != nil {
		return "", s.err
	}

	table := s.cv
	if strings.Contains(message, "interview transcript") {
		table = s.interviews
	}
	for marker, response := range table {
		if strings.Contains(message, marker) {
			return response, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestConsolidateMergesSources(t *testing.T) {
	stub := &stubGenerator{
		cv: map[string]string{
			"ALICE-CV": "```json\n" + `{
				"Name": "Alice Smith",
				"Skills": ["Python", "TensorFlow", "SQL"],
				"Experience": [
					{"Job Title": "ML Engineer", "Company": "Acme", "Duration": "3 years", "Description": "Models"},
					{"job title": "Analyst", "company": "Globex", "duration": "2 years"}
				],
				"Education": [{"Degree": "MSc in AI", "Institution": "UCL", "Graduation Year": 2019}]
			}` + "\n```",
		},
		interviews: map[string]string{
			"ALICE-INT": `["Strong communicator", "Led a team of 4"]`,
		},
	}

	src := &Source{
		ID:            "1",
		CVText:        "ALICE-CV text",
		InterviewText: "ALICE-INT transcript",
		Network: &NetworkRecord{
			Name:       "A. Smith",
			Skills:     []string{"python", "Docker"},
			Experience: []Job{{Title: "Intern", Company: "Initech", Duration: "1 year"}},
			Education:  []Education{{Degree: "BSc in Software Engineering"}},
		},
	}

	c := NewConsolidator(stub, zap.NewNop(), 0, 0)
	p, err := c.Consolidate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "Alice Smith", p.Name)
	assert.Equal(t, []string{"Python", "TensorFlow", "SQL", "Docker"}, p.Skills)
	require.Len(t, p.Experience.CV, 2)
	assert.Equal(t, "Analyst", p.Experience.CV[1].Title)
	assert.Equal(t, "Globex", p.Experience.CV[1].Company)
	assert.Equal(t, []string{"3 years", "2 years"}, p.CVDurations())
	assert.Equal(t, "Intern", p.Experience.Network[0].Title)
	assert.Equal(t, []string{"MSc in AI"}, p.Degrees())
	assert.Equal(t, "2019", p.Education[0].GraduationYear)
	assert.Equal(t, []string{"Strong communicator", "Led a team of 4"}, p.AdditionalInsights)

	for _, system := range stub.systems {
		assert.Equal(t, systemInstruction, system)
	}
}

func TestConsolidateFlattensGroupedSkills(t *testing.T) {
	stub := &stubGenerator{
		cv: map[string]string{
			"CAT-CV": `{"Name": "Cat", "Skills": {"Technical": ["Python", {"name": "Go"}], "Soft": ["Leadership"], "Other": "SQL"}}`,
		},
	}

	p, err := NewConsolidator(stub, nil, 1, 0).Consolidate(context.Background(), &Source{ID: "3", CVText: "CAT-CV"})
	require.NoError(t, err)

	assert.Equal(t, "Cat", p.Name)
	assert.Equal(t, []string{"SQL", "Leadership", "Python", "Go"}, p.Skills)
}

func TestConsolidateFallsBackToNetworkRecord(t *testing.T) {
	stub := &stubGenerator{
		cv: map[string]string{
			"BOB-CV": `{"Skills": "Go", "Experience": {"Job Title": "SRE", "Duration": "4 years"}}`,
		},
		interviews: map[string]string{
			"BOB-INT": "Sorry, I cannot help with that.",
		},
	}

	src := &Source{
		ID:            "2",
		CVText:        "BOB-CV",
		InterviewText: "BOB-INT",
		Network: &NetworkRecord{
			Name:      "Bob Jones",
			Education: []Education{{Degree: "BSc in Software Engineering", Institution: "MIT"}},
		},
	}

	p, err := NewConsolidator(stub, nil, 1, 10).Consolidate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "Bob Jones", p.Name)
	assert.Equal(t, []string{"Go"}, p.Skills)
	require.Len(t, p.Experience.CV, 1)
	assert.Equal(t, "4 years", p.Experience.CV[0].Duration)
	assert.Empty(t, p.Experience.Network)
	assert.NotNil(t, p.Experience.Network)
	assert.Equal(t, []string{"BSc in Software Engineering"}, p.Degrees())
	assert.Empty(t, p.AdditionalInsights)
	assert.NotNil(t, p.AdditionalInsights)
}

func TestConsolidateFailsOnUnreadableCV(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  error
	}{
		{name: "no json", response: "I am unable to read this CV.", wantErr: nil},
		{name: "malformed json", response: "```json\n{\"Name\": \n```", wantErr: ErrMalformedExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGenerator{cv: map[string]string{"CV": tt.response}}
			_, err := NewConsolidator(stub, nil, 1, 0).Consolidate(context.Background(), &Source{ID: "3", CVText: "CV"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "extract cv")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConsolidateRequiresGenerator(t *testing.T) {
	_, err := NewConsolidator(nil, nil, 1, 0).Consolidate(context.Background(), &Source{ID: "1"})
	require.Error(t, err)

	_, err = NewConsolidator(&stubGenerator{}, nil, 1, 0).Consolidate(context.Background(), nil)
	require.Error(t, err)
}

func TestBuildKeepsSourceOrder(t *testing.T) {
	stub := &stubGenerator{
		cv: map[string]string{
			"CV-1": `{"Name": "One"}`,
			"CV-2": `{"Name": "Two"}`,
			"CV-3": `{"Name": "Three"}`,
		},
	}

	sources := []*Source{
		{ID: "1", CVText: "CV-1"},
		{ID: "2", CVText: "CV-2"},
		{ID: "3", CVText: "CV-3"},
	}

	core, observed := observer.New(zapcore.InfoLevel)

	profiles, err := NewConsolidator(stub, zap.New(core), 2, 0).Build(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, Names(profiles))

	entries := observed.FilterMessage("profiles built").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "stub-model", entries[0].ContextMap()[logger.FieldModel])
}

func TestBuildStopsOnFailure(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}

	_, err := NewConsolidator(stub, zap.NewNop(), 2, 0).Build(context.Background(), []*Source{{ID: "7", CVText: "cv"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate 7")
	assert.Contains(t, err.Error(), "quota exceeded")
}
