package profile

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const customersCollection = "customers"

var ErrNotFound = errors.New("profile not found")

// FirestoreStore keeps one document per customer in the customers collection
type FirestoreStore struct {
	Client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{Client: client}
}

func (s *FirestoreStore) doc(customerID string) *firestore.DocumentRef {
	return s.Client.Collection(customersCollection).Doc(customerID)
}

func (s *FirestoreStore) Get(ctx context.Context, customerID string) (*Profile, error) {
	snap, err := s.doc(customerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.CustomerID = customerID
	return &p, nil
}

// Merge writes fields over the existing document, creating it if needed
func (s *FirestoreStore) Merge(ctx context.Context, customerID string, fields map[string]interface{}) error {
	fields[fieldUpdatedAt] = time.Now().UTC()
	_, err := s.doc(customerID).Set(ctx, fields, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) AddToList(ctx context.Context, customerID, field, item string) error {
	_, err := s.doc(customerID).Set(ctx, map[string]interface{}{
		field:          firestore.ArrayUnion(item),
		fieldUpdatedAt: time.Now().UTC(),
	}, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) RemoveFromList(ctx context.Context, customerID, field, item string) error {
	_, err := s.doc(customerID).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.ArrayRemove(item)},
		{Path: fieldUpdatedAt, Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}
