// internal/app/store/persons/personstore.go
package personstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("person not found")
	ErrDuplicateLogin = errors.New("this login is already linked to another person")
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("persons")}
}

// Contact holds the fields an admin edits on the person form.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	BirthDate *time.Time
	Notes     string
}

func (c Contact) normalized() Contact {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}

func foldedName(first, last string) string {
	return text.Fold(strings.TrimSpace(first + " " + last))
}

// Create inserts a person. Roles default to member and Status to active.
func (s *Store) Create(ctx context.Context, c Contact) (models.Person, error) {
	c = c.normalized()
	now := time.Now().UTC()
	p := models.Person{
		ID:         primitive.NewObjectID(),
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		FullNameCI: foldedName(c.FirstName, c.LastName),
		Email:      c.Email,
		EmailCI:    text.Fold(c.Email),
		Phone:      c.Phone,
		BirthDate:  c.BirthDate,
		Notes:      c.Notes,
		Roles:      []string{models.RoleMember},
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Person{}, err
	}
	return p, nil
}

// Insert stores a fully built person (used by create-admin). Login
// collisions map to ErrDuplicateLogin.
func (s *Store) Insert(ctx context.Context, p models.Person) (models.Person, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.FullNameCI = foldedName(p.FirstName, p.LastName)
	p.EmailCI = text.Fold(p.Email)
	if p.LoginID != nil {
		ci := text.Fold(*p.LoginID)
		p.LoginIDCI = &ci
	}
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	if len(p.Roles) == 0 {
		p.Roles = []string{models.RoleMember}
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Person{}, ErrDuplicateLogin
		}
		return models.Person{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Person, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByLoginID looks up a person by case-insensitive login id.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (models.Person, error) {
	return s.findOne(ctx, bson.M{"login_id_ci": text.Fold(strings.TrimSpace(loginID))})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Person, error) {
	var p models.Person
	err := s.c.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Person{}, ErrNotFound
	}
	if err != nil {
		return models.Person{}, err
	}
	return p, nil
}

// List returns every person ordered by folded full name. Filtering and
// re-sorting happen in memory on the list page.
func (s *Store) List(ctx context.Context) ([]models.Person, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Person
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNames maps ids to display names; missing ids are absent.
func (s *Store) GetNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"first_name": 1, "last_name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p models.Person
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p.FullName()
	}
	return out, cur.Err()
}

// UpdateContact replaces the contact fields.
func (s *Store) UpdateContact(ctx context.Context, id primitive.ObjectID, c Contact) error {
	c = c.normalized()
	set := bson.M{
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"full_name_ci": foldedName(c.FirstName, c.LastName),
		"email":        c.Email,
		"email_ci":     text.Fold(c.Email),
		"phone":        c.Phone,
		"notes":        c.Notes,
		"updated_at":   time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if c.BirthDate != nil {
		set["birth_date"] = *c.BirthDate
	} else {
		update["$unset"] = bson.M{"birth_date": ""}
	}
	return s.updateByID(ctx, id, update)
}

// SetStatus flips a person between active and disabled.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if status != models.StatusActive && status != models.StatusDisabled {
		return errBadStatus
	}
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
}

// SetLogin links a login identity and role to the person.
func (s *Store) SetLogin(ctx context.Context, id primitive.ObjectID, loginID, passwordHash, role string) error {
	loginID = strings.TrimSpace(loginID)
	err := s.updateByID(ctx, id, bson.M{"$set": bson.M{
		"login_id":      loginID,
		"login_id_ci":   text.Fold(loginID),
		"password_hash": passwordHash,
		"roles":         []string{role},
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil && wafflemongo.IsDup(err) {
		return ErrDuplicateLogin
	}
	return err
}

// ClearLogin removes the login identity; the person record stays.
func (s *Store) ClearLogin(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"login_id": "", "login_id_ci": "", "password_hash": ""},
		"$set":   bson.M{"roles": []string{models.RoleMember}, "updated_at": time.Now().UTC()},
	})
}

// GrantAdmin adds the admin role and re-enables the person. Existing roles
// are kept.
func (s *Store) GrantAdmin(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"roles": models.RoleAdmin},
		"$set":      bson.M{"status": models.StatusActive, "updated_at": time.Now().UTC()},
	})
}

// SetPasswordHash replaces the stored password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
}

func (s *Store) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
