package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/somnohealth/intakeflow/internal/referral"
	"github.com/somnohealth/intakeflow/internal/store"
	"github.com/somnohealth/intakeflow/pkg/intake"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	// ReferralToken associates an uploaded referral letter with a new
	// conversation. Only honored on the opening turn.
	ReferralToken string `json:"referral_token,omitempty"`
	// Turn is the turn number the client expects this message to
	// produce: the previous response's turn plus one. Clients that echo
	// it can safely retry a request, and a patient repeating their
	// previous answer word for word is still processed as a new turn.
	Turn int `json:"turn,omitempty"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	intake.TurnResult
}

type referralResponse struct {
	Token    string                `json:"token"`
	Referral intake.ReferralLetter `json:"referral"`
}

type consultationResponse struct {
	Consultation *store.Consultation `json:"consultation"`
	Transcript   []store.Message     `json:"transcript"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReferralUpload accepts a referral letter PDF as the "file" field
// of a multipart form, extracts its structured fields, and returns the
// token that associates it with a future conversation.
func (s *Server) handleReferralUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(header.Filename); !strings.HasSuffix(ext, ".pdf") {
		s.writeError(w, http.StatusBadRequest, "referral letter must be a PDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	letter, text, err := s.extractor.FromPDF(r.Context(), data)
	switch {
	case errors.Is(err, referral.ErrNoText):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case inference.IsTransient(err):
		s.writeError(w, http.StatusBadGateway, "referral extraction unavailable")
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, "parse referral letter: "+err.Error())
		return
	}

	token, err := s.store.SaveReferral(r.Context(), store.Referral{
		PatientName:    letter.PatientName,
		DoctorName:     letter.DoctorName,
		ReferralDate:   letter.ReferralDate,
		ReferredTo:     letter.ReferredTo,
		ReferralReason: letter.ReferralReason,
		Text:           text,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, referralResponse{Token: token, Referral: *letter})
}

// handleChat runs one conversation turn. An empty conversation_id opens
// a new conversation; the message must then be empty and an optional
// referral_token personalizes the consultation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var opts []intake.TurnOption
	if req.Turn > 0 {
		opts = append(opts, intake.WithExpectedTurn(req.Turn))
	}
	referralToken := ""
	conversationID := req.ConversationID

	if conversationID == "" {
		if strings.TrimSpace(req.Message) != "" {
			s.writeError(w, http.StatusBadRequest, "conversation_id required to continue a conversation")
			return
		}
		conversationID = uuid.NewString()

		if req.ReferralToken != "" {
			ref, err := s.store.ConsumeReferral(r.Context(), req.ReferralToken)
			if errors.Is(err, store.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, "unknown referral token")
				return
			}
			if errors.Is(err, store.ErrReferralUsed) {
				s.writeError(w, http.StatusConflict, "referral token already used")
				return
			}
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			referralToken = ref.Token
			opts = append(opts, intake.WithReferral(&intake.ReferralLetter{
				PatientName:    ref.PatientName,
				DoctorName:     ref.DoctorName,
				ReferralDate:   ref.ReferralDate,
				ReferredTo:     ref.ReferredTo,
				ReferralReason: ref.ReferralReason,
			}))
		}
	}

	result, err := s.orch.SubmitTurn(r.Context(), conversationID, req.Message, opts...)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.serverError(w, r, err)
			return
		}
		s.writeError(w, status, err.Error())
		return
	}

	if err := s.recordTurn(r, conversationID, referralToken, req.Message, result); err != nil {
		// The turn itself committed; losing the clinician-view row is
		// logged but does not fail the patient's request.
		s.logger.Error("record turn", "conversation_id", conversationID, "error", err)
	}

	s.writeJSON(w, http.StatusOK, chatResponse{ConversationID: conversationID, TurnResult: result})
}

// recordTurn mirrors the committed turn into the consultation store.
func (s *Server) recordTurn(r *http.Request, conversationID, referralToken, message string, result intake.TurnResult) error {
	snap, err := s.orch.Conversation(conversationID)
	if err != nil {
		return err
	}

	// Redelivered turns replay a cached result; don't duplicate the
	// transcript rows.
	if existing, _, err := s.store.GetConsultation(r.Context(), conversationID); err == nil && existing.Turn >= result.Turn {
		return nil
	}

	patientName := ""
	if snap.State.ReferralLetter != nil {
		patientName = snap.State.ReferralLetter.PatientName
	}

	return s.store.RecordTurn(r.Context(), store.TurnRecord{
		ConsultationID:    conversationID,
		PatientName:       patientName,
		ReferralToken:     referralToken,
		PatientMessage:    message,
		AgentMessages:     result.AgentMessages,
		Status:            statusFor(result),
		TerminateReason:   string(result.TerminateReason),
		UrgencyLevel:      string(result.UrgencyLevel),
		DoctorSummary:     snap.State.DoctorSummary,
		PatientSummary:    snap.State.PatientSummary,
		QuestionsAnswered: result.QuestionsAnswered,
		Turn:              result.Turn,
	})
}

// statusFor maps a turn outcome onto a consultation status.
func statusFor(result intake.TurnResult) string {
	if !result.Terminated {
		return store.StatusActive
	}
	switch result.TerminateReason {
	case intake.TerminateComplete:
		return store.StatusCompleted
	case intake.TerminateSafety:
		return store.StatusTerminatedSafety
	case intake.TerminateOffTopic:
		return store.StatusTerminatedOffTopic
	default:
		return store.StatusActive
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := store.SearchQuery{
		PatientName: r.URL.Query().Get("patient_name"),
		Status:      r.URL.Query().Get("status"),
		Urgency:     r.URL.Query().Get("urgency"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	results, err := s.store.Search(r.Context(), q)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if results == nil {
		results = []store.Consultation{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"consultations": results})
}

func (s *Server) handleConsultation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	c, msgs, err := s.store.GetConsultation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown consultation")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	s.writeJSON(w, http.StatusOK, consultationResponse{Consultation: c, Transcript: msgs})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
