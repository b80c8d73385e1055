package medication

import (
	"fmt"
	"strings"

	"github.com/Mediquereminder/medique-sub000/pkg/monitoring"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// Fallbacks used when the medication a dose event points at cannot be found.
// Lookups degrade instead of failing.
const (
	unknownMedicationName = "Unknown medication"
	unknownDosage         = "1"
)

// MarkMedicationTaken marks a dose event taken and runs the follow-on
// effects: a history entry, a caretaker notification, and a stock decrement.
// The taken check and transition both happen inside the collection's write
// boundary, so of any number of concurrent calls exactly one wins the
// false->true transition and runs the effects; the rest are no-ops that
// return the event unchanged.
func (s *Service) MarkMedicationTaken(doseEventID string) (*types.DoseEvent, error) {
	s.logger.Infof("Marking dose event %s taken", doseEventID)

	var updated types.DoseEvent
	alreadyTaken := false
	err := s.repository.MutateDoseEvents(func(events []types.DoseEvent) ([]types.DoseEvent, error) {
		for i := range events {
			if events[i].ID != doseEventID {
				continue
			}
			if events[i].Taken {
				alreadyTaken = true
				updated = events[i]
				return events, nil
			}
			now := s.now()
			events[i].Taken = true
			events[i].TakenTime = &now
			updated = events[i]
			return events, nil
		}
		return nil, types.ErrDoseEventNotFound
	})
	if err != nil {
		return nil, err
	}
	if alreadyTaken {
		s.logger.Infof("Dose event %s already taken, skipping effects", doseEventID)
		out := updated
		return &out, nil
	}

	name, dosage := s.lookupMedication(updated.MedicationID)

	if err := s.AddHistoryEntry(types.HistoryEntry{
		Date:      s.now(),
		Medicine:  name,
		Quantity:  dosage,
		PatientID: updated.PatientID,
		Taken:     true,
	}); err != nil {
		s.logger.WithError(err).Errorf("Failed to record history for dose event %s", doseEventID)
	}

	// Caretakers are told the dose was taken; the patient already knows.
	if err := s.NotifyCaretakers(updated.PatientID, types.Notification{
		Title:   "Medication Taken",
		Message: fmt.Sprintf("%s (%s) was taken", name, dosage),
		Type:    types.NotificationDoseTaken,
	}); err != nil {
		s.logger.WithError(err).Errorf("Failed to notify caretakers of patient %s", updated.PatientID)
	}

	s.decrementStock(updated.MedicationID, updated.PatientID, name)

	monitoring.RecordDoseTaken()
	return &updated, nil
}

// lookupMedication resolves display name and dosage for a medication,
// degrading to placeholders when it cannot be found
func (s *Service) lookupMedication(medicationID string) (name, dosage string) {
	name, dosage = unknownMedicationName, unknownDosage

	meds, err := s.repository.Medications()
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to look up medication %s", medicationID)
		return name, dosage
	}

	for _, med := range meds {
		if med.ID == medicationID {
			return med.Name, med.Dosage
		}
	}
	return name, dosage
}

// decrementStock takes one unit off the matching stock item, floored at
// zero. Matching prefers the medicationId foreign key and falls back to the
// legacy case-insensitive name + patient join for records without it.
// A missing stock item means there is nothing to decrement. The stock-low
// notification fires only on the decrement that crosses the threshold, not
// on every dose taken while the quantity sits at or below it.
func (s *Service) decrementStock(medicationID, patientID, medicationName string) {
	var lowItem *types.StockItem

	err := s.repository.MutateStockItems(func(items []types.StockItem) ([]types.StockItem, error) {
		idx := -1
		for i := range items {
			if items[i].MedicationID != "" && items[i].MedicationID == medicationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			for i := range items {
				if items[i].PatientID == patientID &&
					strings.EqualFold(items[i].Name, medicationName) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			return items, nil
		}

		previous := items[idx].Quantity
		if items[idx].Quantity > 0 {
			items[idx].Quantity--
		}
		items[idx].LastUpdated = s.now()

		if previous > items[idx].Threshold && items[idx].Quantity <= items[idx].Threshold {
			low := items[idx]
			lowItem = &low
		}
		return items, nil
	})
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to decrement stock for medication %s", medicationID)
		return
	}

	if lowItem != nil {
		if err := s.AddNotification(patientID, types.Notification{
			Title:   "Stock Low",
			Message: fmt.Sprintf("Only %d of %s left, consider restocking", lowItem.Quantity, lowItem.Name),
			Type:    types.NotificationStockLow,
		}); err != nil {
			s.logger.WithError(err).Errorf("Failed to send stock-low notification to %s", patientID)
		}
	}
}
