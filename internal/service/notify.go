package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"onestoppos/backend/internal/domain"
	"onestoppos/backend/internal/notify"
	"onestoppos/backend/internal/store"
)

// NotifyCustomer sends a debt reminder to a single customer.
func (s *Service) NotifyCustomer(ctx context.Context, customerID int64) (domain.NotifySendResponse, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.NotifySendResponse{}, err
	}
	if customer.Phone == "" {
		return domain.NotifySendResponse{}, fmt.Errorf("%w: customer has no phone number", store.ErrInvalidInput)
	}

	phone := notify.NormalizePhone(customer.Phone, s.countryPrefix)
	message := notify.DebtMessage(customer.Name, customer.TotalCredit)

	messageID, err := s.gateway.Send(ctx, phone, message)
	if err != nil {
		log.Printf("[service] WARN: notify failed customer=%d: %v", customerID, err)
		return domain.NotifySendResponse{
			Success: false,
			Customer: domain.NotifiedCustomer{
				ID: customer.ID, Name: customer.Name, Phone: phone, Amount: customer.TotalCredit,
			},
			Error: err.Error(),
		}, nil
	}

	log.Printf("[service] notify sent customer=%d message_id=%s", customerID, messageID)
	return domain.NotifySendResponse{
		Success: true,
		Customer: domain.NotifiedCustomer{
			ID: customer.ID, Name: customer.Name, Phone: phone, Amount: customer.TotalCredit,
		},
		MessageID: messageID,
	}, nil
}

// NotifyBulk sends reminders to all matching customers sequentially, pausing
// between sends so the provider does not rate-limit the account. One failed
// send does not stop the run.
func (s *Service) NotifyBulk(ctx context.Context, req domain.BulkNotifyRequest) (domain.BulkNotifyResponse, error) {
	customers, err := s.repo.ListCustomersForNotify(ctx, req.CustomerIDs, req.MinCreditAmount)
	if err != nil {
		return domain.BulkNotifyResponse{}, err
	}

	results := make([]domain.BulkNotifyResult, 0, len(customers))
	sent := 0
	for i, customer := range customers {
		if i > 0 && s.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return domain.BulkNotifyResponse{}, ctx.Err()
			case <-time.After(s.sendDelay):
			}
		}

		phone := notify.NormalizePhone(customer.Phone, s.countryPrefix)
		message := notify.DebtMessage(customer.Name, customer.TotalCredit)

		result := domain.BulkNotifyResult{
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			Phone:        phone,
		}
		messageID, err := s.gateway.Send(ctx, phone, message)
		if err != nil {
			log.Printf("[service] WARN: bulk notify failed customer=%d: %v", customer.ID, err)
			result.Error = err.Error()
		} else {
			result.Success = true
			result.MessageID = messageID
			sent++
		}
		results = append(results, result)
	}

	log.Printf("[service] bulk notify done sent=%d total=%d", sent, len(customers))
	return domain.BulkNotifyResponse{
		Message: fmt.Sprintf("%d/%d müşteriye hatırlatma gönderildi", sent, len(customers)),
		Sent:    sent,
		Total:   len(customers),
		Results: results,
	}, nil
}
