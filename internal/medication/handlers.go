package medication

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Mediquereminder/medique-sub000/pkg/monitoring"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// setupRoutes configures HTTP routes for the medication service
func (s *Service) setupRoutes(router *mux.Router) {
	if s.config.Monitoring.Enabled {
		router.Use(monitoring.Middleware)
		router.Handle(s.config.Monitoring.MetricsPath, monitoring.Handler()).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// Medication routes
	api.HandleFunc("/medications", s.addMedicationHandler).Methods("POST")
	api.HandleFunc("/medications/{id}/deactivate", s.deactivateMedicationHandler).Methods("POST")
	api.HandleFunc("/patients/{patientId}/medications", s.getMedicationsHandler).Methods("GET")

	// Schedule queries
	api.HandleFunc("/users/{userId}/schedules/upcoming", s.getUpcomingSchedulesHandler).Methods("GET")
	api.HandleFunc("/users/{userId}/schedules/today", s.getTodaySchedulesHandler).Methods("GET")

	// Dose lifecycle
	api.HandleFunc("/schedules/{id}/taken", s.markTakenHandler).Methods("POST")

	// Sweeps (normally timer-driven, exposed for ops and the UI poller)
	api.HandleFunc("/sweeps/due", s.checkDueHandler).Methods("POST")
	api.HandleFunc("/sweeps/missed", s.checkMissedHandler).Methods("POST")

	// Users and caretaker links
	api.HandleFunc("/users", s.createUserHandler).Methods("POST")
	api.HandleFunc("/users/{userId}", s.getUserHandler).Methods("GET")
	api.HandleFunc("/patients/{patientId}/caretakers/{caretakerId}", s.connectCaretakerHandler).Methods("POST")

	// Notifications
	api.HandleFunc("/users/{userId}/notifications", s.getNotificationsHandler).Methods("GET")
	api.HandleFunc("/users/{userId}/notifications", s.addNotificationHandler).Methods("POST")
	api.HandleFunc("/users/{userId}/notifications/{id}/read", s.markNotificationReadHandler).Methods("POST")

	// Stock
	api.HandleFunc("/patients/{patientId}/stock", s.getStockHandler).Methods("GET")
	api.HandleFunc("/stock", s.upsertStockHandler).Methods("PUT")

	// History
	api.HandleFunc("/patients/{patientId}/history", s.getHistoryHandler).Methods("GET")
	api.HandleFunc("/history", s.addHistoryHandler).Methods("POST")

	// Health check
	api.HandleFunc("/health", s.healthCheckHandler).Methods("GET")

	s.logger.Info("Medication service routes configured")
}

// addMedicationHandler handles medication creation and schedule generation
func (s *Service) addMedicationHandler(w http.ResponseWriter, r *http.Request) {
	var med types.Medication
	if err := json.NewDecoder(r.Body).Decode(&med); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.AddMedication(&med, r.Header.Get("X-User-ID"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Failed to add medication", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// deactivateMedicationHandler handles medication deactivation
func (s *Service) deactivateMedicationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := s.DeactivateMedication(vars["id"], r.Header.Get("X-User-ID"))
	if err != nil {
		if errors.Is(err, types.ErrMedicationNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Medication not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, "Failed to deactivate medication", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Medication deactivated"})
}

// getMedicationsHandler returns a patient's medications
func (s *Service) getMedicationsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	meds, err := s.GetMedications(vars["patientId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get medications", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, meds)
}

// getUpcomingSchedulesHandler returns pending future dose events
func (s *Service) getUpcomingSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	events, err := s.GetUpcomingSchedules(vars["userId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get upcoming schedules", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, events)
}

// getTodaySchedulesHandler returns dose events on the current date
func (s *Service) getTodaySchedulesHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	events, err := s.GetTodaySchedules(vars["userId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get today's schedules", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, events)
}

// markTakenHandler marks a dose event taken
func (s *Service) markTakenHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	event, err := s.MarkMedicationTaken(vars["id"])
	if err != nil {
		if errors.Is(err, types.ErrDoseEventNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Dose event not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to mark dose taken", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, event)
}

// checkDueHandler runs a due sweep and returns the matched events
func (s *Service) checkDueHandler(w http.ResponseWriter, r *http.Request) {
	due, err := s.CheckDueMedications()
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Due sweep failed", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, due)
}

// checkMissedHandler runs a missed sweep and returns the matched events
func (s *Service) checkMissedHandler(w http.ResponseWriter, r *http.Request) {
	missed, err := s.CheckMissedMedications()
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Missed sweep failed", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, missed)
}

// createUserHandler registers a patient or caretaker
func (s *Service) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var user types.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateUser(&user)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Failed to create user", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// getUserHandler returns a user by ID
func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := s.GetUser(vars["userId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "User not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// connectCaretakerHandler links a caretaker to a patient
func (s *Service) connectCaretakerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := s.ConnectCaretaker(vars["patientId"], vars["caretakerId"])
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "User not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to connect caretaker", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Caretaker connected"})
}

// getNotificationsHandler returns a user's notifications
func (s *Service) getNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	notifications, err := s.GetNotifications(vars["userId"])
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "User not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get notifications", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, notifications)
}

// addNotificationHandler delivers a notification to a single user
func (s *Service) addNotificationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var notification types.Notification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.AddNotification(vars["userId"], notification); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to add notification", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, map[string]string{"message": "Notification added"})
}

// markNotificationReadHandler flags a notification as read
func (s *Service) markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := s.MarkNotificationRead(vars["userId"], vars["id"])
	if err != nil {
		if errors.Is(err, types.ErrNotificationNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Notification not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to mark notification read", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Notification marked read"})
}

// getStockHandler returns a patient's stock items
func (s *Service) getStockHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	items, err := s.GetStock(vars["patientId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get stock", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, items)
}

// upsertStockHandler creates or updates a stock item
func (s *Service) upsertStockHandler(w http.ResponseWriter, r *http.Request) {
	var item types.StockItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := s.UpsertStockItem(&item)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Failed to upsert stock item", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, updated)
}

// getHistoryHandler returns a patient's adherence history
func (s *Service) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	history, err := s.GetHistory(vars["patientId"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get history", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, history)
}

// addHistoryHandler appends one history entry
func (s *Service) addHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var entry types.HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.AddHistoryEntry(entry); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to add history entry", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, map[string]string{"message": "History entry added"})
}

// healthCheckHandler reports service liveness
func (s *Service) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "medication-service",
	})
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.WithError(err).Error(message)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}
