package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/psiagenda/practice-scheduler/internal/notify"
	redisclient "github.com/psiagenda/practice-scheduler/internal/redis"
	"github.com/psiagenda/practice-scheduler/internal/scheduling"
)

func createScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		rule, err := req.Rule.toRule()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
			return
		}

		sched := &scheduling.Schedule{
			UserID:          userID,
			PatientID:       patientID,
			Rule:            rule,
			DurationMinutes: req.DurationMinutes,
			SessionType:     req.SessionType,
			DefaultValue:    req.DefaultValue,
		}

		created, inserted, err := svc.CreateSchedule(r.Context(), sched)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, scheduleToResponse(created, inserted, ""))
	}
}

func updateScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		var req UpdateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		rule, err := req.Rule.toRule()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule", err.Error())
			return
		}

		sched := &scheduling.Schedule{
			ID:              id,
			Rule:            rule,
			DurationMinutes: req.DurationMinutes,
			SessionType:     req.SessionType,
			DefaultValue:    req.DefaultValue,
		}

		updated, inserted, err := svc.UpdateSchedule(r.Context(), sched)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, scheduleToResponse(updated, inserted, ""))
	}
}

func deactivateScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeactivateSchedule(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func materializeScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		inserted, err := svc.MaterializeSchedule(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MaterializeResponse{ScheduleID: id, SessionsInserted: inserted})
	}
}

func moveSeriesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a valid UUID")
			return
		}

		var req MoveSeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.OriginalOccurrence.IsZero() || req.Target.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "original_occurrence and target are required")
			return
		}

		updated, downgraded, err := svc.UpdateSeriesFromOccurrence(r.Context(), id, req.OriginalOccurrence, req.Target)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		notice := ""
		if downgraded {
			notice = notify.NoticeRecurrenceDowngraded
		}
		writeJSON(w, http.StatusOK, scheduleToResponse(updated, 0, notice))
	}
}

func moveSessionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		var req MoveSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		scheduleID, err := uuid.Parse(req.ScheduleID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "schedule_id must be a valid UUID")
			return
		}
		if req.Target.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "target is required")
			return
		}

		if err := svc.MoveSingleOccurrence(r.Context(), sessionID, scheduleID, req.OccurrenceDate, req.Target); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func regeneratePatientHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		inserted, err := svc.RegenerateForPatient(r.Context(), patientID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, RegenerateResponse{PatientID: patientID, SessionsInserted: inserted})
	}
}

func listSessionsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
			return
		}

		sessions, err := svc.ListSessions(r.Context(), patientID, from, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]SessionResponse, 0, len(sessions))
		for _, s := range sessions {
			resp = append(resp, sessionToResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func findDriftedHandler(auditor *scheduling.Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drifted, err := auditor.FindDrifted(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if drifted == nil {
			drifted = []uuid.UUID{}
		}
		writeJSON(w, http.StatusOK, DriftedResponse{Drifted: drifted})
	}
}

func repairDriftedHandler(auditor *scheduling.Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		if err := auditor.Repair(r.Context(), patientID); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 1, 0)

	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
	}
	return from, to, nil
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var vErr *scheduling.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_rule", vErr.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNoActiveSchedule):
		writeError(w, http.StatusNotFound, "no_active_schedule", err.Error())
	case errors.Is(err, scheduling.ErrActiveScheduleExists):
		writeError(w, http.StatusConflict, "active_schedule_exists", err.Error())
	case errors.Is(err, scheduling.ErrPatientArchived):
		writeError(w, http.StatusConflict, "patient_archived", err.Error())
	case errors.Is(err, scheduling.ErrScheduleRetired):
		writeError(w, http.StatusConflict, "schedule_retired", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "series_being_modified", "the series is currently being modified, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
