package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sahayak/teacher-portal/backend/internal/models"
)

// ErrNotFound is returned when a single-document lookup matches nothing.
var ErrNotFound = errors.New("not found")

// MongoStore reads classrooms and reads/writes content records.
type MongoStore struct {
	classrooms *mongo.Collection
	contents   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		classrooms: db.Collection("classrooms"),
		contents:   db.Collection("contents"),
	}
}

// EnsureIndexes creates the indexes behind the content queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.contents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "add_to_library_ind", Value: 1}}},
		{Keys: bson.D{{Key: "related_classroom_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo contents indexes: %w", err)
	}
	_, err = s.classrooms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "teacher_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo classrooms index: %w", err)
	}
	return nil
}

// ListClassroomsByTeacher returns the classrooms owned by teacherID.
func (s *MongoStore) ListClassroomsByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.classrooms.Find(ctx, bson.M{"teacher_id": teacherID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find classrooms: %w", err)
	}
	defer cur.Close(ctx)

	var rooms []models.Classroom
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("mongo decode classrooms: %w", err)
	}
	return rooms, nil
}

// GetClassroom returns one classroom by hex id.
func (s *MongoStore) GetClassroom(ctx context.Context, id string) (*models.Classroom, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}
	var room models.Classroom
	if err := s.classrooms.FindOne(ctx, bson.M{"_id": oid}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find classroom: %w", err)
	}
	return &room, nil
}

// InsertContent writes one content record and returns its document id. The
// id and create date are filled in on rec.
func (s *MongoStore) InsertContent(ctx context.Context, rec *models.ContentRecord) (string, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.CreateDate.IsZero() {
		rec.CreateDate = time.Now().UTC()
	}
	if _, err := s.contents.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("mongo insert content: %w", err)
	}
	return rec.ID.Hex(), nil
}

// ListLibrary returns records the user flagged for the resource library.
func (s *MongoStore) ListLibrary(ctx context.Context, userID string) ([]models.ContentRecord, error) {
	return s.findContents(ctx, bson.M{"created_by": userID, "add_to_library_ind": true})
}

// ListByClassroom returns records assigned to a classroom.
func (s *MongoStore) ListByClassroom(ctx context.Context, classroomID string) ([]models.ContentRecord, error) {
	return s.findContents(ctx, bson.M{"related_classroom_id": classroomID})
}

func (s *MongoStore) findContents(ctx context.Context, filter bson.M) ([]models.ContentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "create_date", Value: -1}})
	cur, err := s.contents.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find contents: %w", err)
	}
	defer cur.Close(ctx)

	var recs []models.ContentRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("mongo decode contents: %w", err)
	}
	return recs, nil
}
