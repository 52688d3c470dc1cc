package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/storage"
)

type scoreRequest struct {
	Answers []assessment.Answer `json:"answers"`
	Save    bool                `json:"save"`
}

type scoreResponse struct {
	assessment.Report
	ID    string `json:"id,omitempty"`
	Saved bool   `json:"saved"`
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.questions.Questions, http.StatusOK)
}

func (s *Server) scoreAssessment(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for _, a := range req.Answers {
		if err := s.questions.CheckAnswer(a); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	answers := assessment.Collect(req.Answers)
	report, err := s.questions.Score(answers)
	if err != nil {
		log.Printf("scoring failed: %v", err)
		respondError(w, "scoring unavailable", http.StatusInternalServerError)
		return
	}

	resp := scoreResponse{Report: report}

	if req.Save {
		if s.repo == nil {
			log.Printf("assessment save requested by %s but persistence is disabled", UserID(r))
		} else {
			record := storage.NewAssessmentRecord(UserID(r), answers, report)
			if err := s.repo.SaveAssessment(r.Context(), record); err != nil {
				log.Printf("failed to save assessment: %v", err)
				respondError(w, "failed to save assessment", http.StatusInternalServerError)
				return
			}
			resp.ID = record.ID
			resp.Saved = true
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAssessment(r.Context(), report, resp.Saved)
	}

	respondJSON(w, resp, http.StatusOK)
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	records, err := s.repo.GetAssessmentsByUser(r.Context(), UserID(r))
	if err != nil {
		log.Printf("failed to load assessments: %v", err)
		respondError(w, "failed to load assessments", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []storage.AssessmentRecord{}
	}

	respondJSON(w, records, http.StatusOK)
}
