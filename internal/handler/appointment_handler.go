package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clinic-appointments-api/internal/apperror"
	"clinic-appointments-api/internal/model"
	"clinic-appointments-api/internal/store"
)

type bookRequest struct {
	ProviderID int64  `json:"providerId" validate:"required"`
	PatientID  int64  `json:"patientId" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

// BookAppointment handles POST /appointments. Validation runs entirely
// before the store is touched; a missing provider or patient surfaces as a
// 404, not a generic server error.
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.Validation("providerId, patientId, date, time and reason are required"))
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, apperror.Validation("date must be formatted as YYYY-MM-DD"))
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		writeError(w, apperror.Validation("time must be formatted as HH:MM"))
		return
	}

	apt := &model.Appointment{
		ProviderID: req.ProviderID,
		PatientID:  req.PatientID,
		Date:       req.Date,
		Time:       req.Time,
		Reason:     req.Reason,
	}
	if err := h.store.InsertAppointment(r.Context(), apt); err != nil {
		if errors.Is(err, store.ErrMissingReference) {
			writeError(w, apperror.Referential("provider or patient does not exist"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "appointment booked",
		"appointment": apt,
	})
}

// CancelAppointment handles PUT /appointments/{id}/cancel. A missing
// appointment and an already-cancelled one are both a 404; the conditional
// update cannot tell them apart and the API does not pretend to.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperror.Validation("appointment id must be numeric"))
		return
	}

	cancelled, err := h.store.CancelIfActive(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !cancelled {
		writeError(w, apperror.NotFound("no active appointment with that id"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("appointment %d cancelled", id),
	})
}

// ListPatientAppointments handles GET /appointments/by-patient/{patientId}.
// An empty result is a 404, matching the store's historical contract.
func (h *Handler) ListPatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, err := strconv.ParseInt(chi.URLParam(r, "patientId"), 10, 64)
	if err != nil {
		writeError(w, apperror.Validation("patient id must be numeric"))
		return
	}

	appts, err := h.store.ListActiveByPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(appts) == 0 {
		writeError(w, apperror.NotFound("no appointments found for this patient"))
		return
	}

	writeJSON(w, http.StatusOK, appts)
}
