package medication

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/Mediquereminder/medique-sub000/pkg/config"
	"github.com/Mediquereminder/medique-sub000/pkg/interfaces"
	"github.com/Mediquereminder/medique-sub000/pkg/logger"
	"github.com/Mediquereminder/medique-sub000/pkg/store"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// Service implements the MedicationService interface
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository interfaces.AdherenceRepository
	kv         interfaces.KVStore
	server     *http.Server
	cron       *cron.Cron
	now        func() time.Time
}

// New creates a new medication service wired to the configured store
func New(cfg *config.Config, log *logger.Logger) (interfaces.MedicationService, error) {
	kv, err := openStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &Service{
		config:     cfg,
		logger:     log,
		repository: NewRepository(kv, log),
		kv:         kv,
		now:        time.Now,
	}, nil
}

// openStore selects the KVStore implementation from config
func openStore(cfg *config.Config, log *logger.Logger) (interfaces.KVStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(&cfg.Store, log)
	default:
		return store.NewMemory(log), nil
	}
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// AddMedication validates and persists a medication, expands its dose
// schedule, and notifies the patient that it was added.
func (s *Service) AddMedication(med *types.Medication, userID string) (*types.Medication, error) {
	s.logger.WithUserID(userID).Infof("Adding medication %q for patient %s", med.Name, med.PatientID)

	if err := s.validateMedication(med); err != nil {
		return nil, fmt.Errorf("medication validation failed: %w", err)
	}

	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	if med.CreatedBy == "" {
		med.CreatedBy = userID
	}
	med.Active = true
	med.CreatedAt = s.now()

	if err := s.repository.MutateMedications(func(meds []types.Medication) ([]types.Medication, error) {
		for _, existing := range meds {
			if existing.ID == med.ID {
				return nil, types.NewValidationError(types.ErrCodeConflict,
					fmt.Sprintf("medication %s already exists", med.ID), nil)
			}
		}
		return append(meds, *med), nil
	}); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	generated, err := s.generateSchedules(med)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedules: %w", err)
	}

	// A single "added" notification, separate from per-dose notifications
	if err := s.AddNotification(med.PatientID, types.Notification{
		Title:   "Medication Added",
		Message: fmt.Sprintf("%s (%s) was added to your schedule", med.Name, med.Dosage),
		Type:    types.NotificationMedicationAdded,
	}); err != nil {
		s.logger.WithError(err).Errorf("Failed to notify patient %s about new medication", med.PatientID)
	}

	s.logger.Infof("Created medication %s with %d dose events", med.ID, generated)
	return med, nil
}

// DeactivateMedication marks a medication inactive. Medications are never
// physically deleted; already-generated dose events are left in place.
func (s *Service) DeactivateMedication(medID, userID string) error {
	s.logger.WithUserID(userID).Infof("Deactivating medication %s", medID)

	found := false
	err := s.repository.MutateMedications(func(meds []types.Medication) ([]types.Medication, error) {
		for i := range meds {
			if meds[i].ID == medID {
				meds[i].Active = false
				if meds[i].EndDate == nil {
					end := s.now()
					meds[i].EndDate = &end
				}
				found = true
				break
			}
		}
		return meds, nil
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}
	if !found {
		return types.ErrMedicationNotFound
	}
	return nil
}

// GetMedications returns all medications prescribed to a patient
func (s *Service) GetMedications(patientID string) ([]types.Medication, error) {
	meds, err := s.repository.Medications()
	if err != nil {
		return nil, fmt.Errorf("failed to get medications: %w", err)
	}

	out := []types.Medication{}
	for _, med := range meds {
		if med.PatientID == patientID {
			out = append(out, med)
		}
	}
	return out, nil
}

// CreateUser registers a patient or caretaker
func (s *Service) CreateUser(user *types.User) (*types.User, error) {
	if user.Name == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "user name is required", nil)
	}
	if user.Role != types.RolePatient && user.Role != types.RoleCaretaker {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("unknown role: %s", user.Role), nil)
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = s.now()

	if err := s.repository.MutateUsers(func(users []types.User) ([]types.User, error) {
		for _, existing := range users {
			if existing.ID == user.ID {
				return nil, types.NewValidationError(types.ErrCodeConflict,
					fmt.Sprintf("user %s already exists", user.ID), nil)
			}
		}
		return append(users, *user), nil
	}); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infof("Created %s %s", user.Role, user.ID)
	return user, nil
}

// GetUser returns a user by ID
func (s *Service) GetUser(userID string) (*types.User, error) {
	users, err := s.repository.Users()
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for i := range users {
		if users[i].ID == userID {
			return &users[i], nil
		}
	}
	return nil, types.ErrUserNotFound
}

// ConnectCaretaker links a caretaker to a patient. The adjacency is
// maintained on both user records.
func (s *Service) ConnectCaretaker(patientID, caretakerID string) error {
	s.logger.Infof("Connecting caretaker %s to patient %s", caretakerID, patientID)

	patientFound, caretakerFound := false, false
	err := s.repository.MutateUsers(func(users []types.User) ([]types.User, error) {
		for i := range users {
			switch users[i].ID {
			case patientID:
				patientFound = true
				users[i].ConnectedCaretakers = appendUnique(users[i].ConnectedCaretakers, caretakerID)
			case caretakerID:
				caretakerFound = true
				users[i].ConnectedPatients = appendUnique(users[i].ConnectedPatients, patientID)
			}
		}
		if !patientFound || !caretakerFound {
			return nil, types.ErrUserNotFound
		}
		return users, nil
	})
	if err != nil {
		return err
	}
	return nil
}

// UpsertStockItem creates or updates a patient's stock record
func (s *Service) UpsertStockItem(item *types.StockItem) (*types.StockItem, error) {
	if item.PatientID == "" || item.Name == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			"stock item requires patientId and name", nil)
	}
	if item.Quantity < 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			"stock quantity cannot be negative", nil)
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.LastUpdated = s.now()

	err := s.repository.MutateStockItems(func(items []types.StockItem) ([]types.StockItem, error) {
		for i := range items {
			if items[i].ID == item.ID {
				items[i] = *item
				return items, nil
			}
		}
		return append(items, *item), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert stock item: %w", err)
	}
	return item, nil
}

// GetStock returns all stock items belonging to a patient
func (s *Service) GetStock(patientID string) ([]types.StockItem, error) {
	items, err := s.repository.StockItems()
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}

	out := []types.StockItem{}
	for _, item := range items {
		if item.PatientID == patientID {
			out = append(out, item)
		}
	}
	return out, nil
}

// AddHistoryEntry appends one row to the adherence audit log
func (s *Service) AddHistoryEntry(entry types.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}

	return s.repository.MutateHistory(func(history []types.HistoryEntry) ([]types.HistoryEntry, error) {
		return append(history, entry), nil
	})
}

// GetHistory returns a patient's adherence history, most recent first
func (s *Service) GetHistory(patientID string) ([]types.HistoryEntry, error) {
	history, err := s.repository.History()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	out := []types.HistoryEntry{}
	for _, entry := range history {
		if entry.PatientID == patientID {
			out = append(out, entry)
		}
	}
	sortHistoryDescending(out)
	return out, nil
}

// Start starts the HTTP server and the sweep timers
func (s *Service) Start(addr string) error {
	router := mux.NewRouter()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.startSweepers()

	s.logger.Infof("Starting Medication Service on %s", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the sweep timers, the HTTP server, and the store
func (s *Service) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.server != nil {
		s.logger.Info("Stopping Medication Service")
		if err := s.server.Close(); err != nil {
			return err
		}
	}
	if s.kv != nil {
		return s.kv.Close()
	}
	return nil
}

// validateMedication validates medication data
func (s *Service) validateMedication(med *types.Medication) error {
	if med.Name == "" {
		return fmt.Errorf("medication name is required")
	}

	if med.PatientID == "" {
		return fmt.Errorf("patient ID is required")
	}

	switch med.Frequency {
	case types.FrequencyDaily, types.FrequencyTwiceDaily, types.FrequencyWeekly:
	default:
		return fmt.Errorf("unknown frequency: %s", med.Frequency)
	}

	if !timeOfDayPattern.MatchString(med.TimeOfDay) {
		return fmt.Errorf("time of day must be HH:MM, got %q", med.TimeOfDay)
	}

	if med.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}

	if med.EndDate != nil && !med.EndDate.After(med.StartDate) {
		return fmt.Errorf("end date must be after start date")
	}

	return nil
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
