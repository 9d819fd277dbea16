// Package txn runs groups of MongoDB writes atomically when the deployment
// supports multi-document transactions (replica sets and sharded clusters).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotSupported is returned by Run when the server cannot run transactions.
// Callers fall back to non-transactional writes.
var ErrNotSupported = errors.New("transactions not supported by this deployment")

// Run executes fn inside a transaction. fn must use the session context it is
// given for every operation that should be part of the transaction.
//
// If the server rejects transactions, Run returns an error wrapping
// ErrNotSupported and fn's writes (if any) are rolled back by the server.
func Run(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return errors.Join(ErrNotSupported, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return errors.Join(ErrNotSupported, err)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run a
// transaction (standalone mongod, unsupported command inside a transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotSupported) {
		return true
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers only allowed on replica sets
			51,  // IllegalOperation (legacy)
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && strings.Contains(msg, "session"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
