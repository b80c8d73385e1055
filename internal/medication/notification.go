package medication

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Mediquereminder/medique-sub000/pkg/monitoring"
	"github.com/Mediquereminder/medique-sub000/pkg/types"
)

// AddNotification prepends a notification to a user's list, most recent
// first. A missing user is a no-op; delivery never fails the caller.
func (s *Service) AddNotification(userID string, notification types.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = s.now()
	}

	delivered := false
	err := s.repository.MutateUsers(func(users []types.User) ([]types.User, error) {
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			users[i].Notifications = append(
				[]types.Notification{notification}, users[i].Notifications...)
			delivered = true
			break
		}
		return users, nil
	})
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}

	if delivered {
		monitoring.RecordNotificationSent(string(notification.Type))
		s.logger.Delivery(userID, string(notification.Type), false)
	}
	return nil
}

// NotifyCaretakers delivers a notification to every caretaker connected to
// the patient. Each caretaker gets their own copy. An unknown patient or a
// patient with no caretakers is a no-op.
func (s *Service) NotifyCaretakers(patientID string, notification types.Notification) error {
	users, err := s.repository.Users()
	if err != nil {
		return fmt.Errorf("failed to get users: %w", err)
	}

	var caretakers []string
	for _, user := range users {
		if user.ID == patientID {
			caretakers = user.ConnectedCaretakers
			break
		}
	}

	for _, caretakerID := range caretakers {
		copied := notification
		copied.ID = ""
		if err := s.AddNotification(caretakerID, copied); err != nil {
			s.logger.WithError(err).Errorf("Failed to notify caretaker %s", caretakerID)
			continue
		}
		s.logger.Delivery(caretakerID, string(notification.Type), true)
	}

	return nil
}

// GetNotifications returns a user's notifications, most recent first
func (s *Service) GetNotifications(userID string) ([]types.Notification, error) {
	users, err := s.repository.Users()
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	for _, user := range users {
		if user.ID == userID {
			if user.Notifications == nil {
				return []types.Notification{}, nil
			}
			return user.Notifications, nil
		}
	}
	return nil, types.ErrUserNotFound
}

// MarkNotificationRead flags one of a user's notifications as read
func (s *Service) MarkNotificationRead(userID, notificationID string) error {
	found := false
	err := s.repository.MutateUsers(func(users []types.User) ([]types.User, error) {
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			for j := range users[i].Notifications {
				if users[i].Notifications[j].ID == notificationID {
					users[i].Notifications[j].Read = true
					found = true
					break
				}
			}
			break
		}
		return users, nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !found {
		return types.ErrNotificationNotFound
	}
	return nil
}
