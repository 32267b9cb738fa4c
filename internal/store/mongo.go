package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tasksync/internal/models"
)

const (
	mongoCollection = "tasks"
	mongoTimeout    = 5 * time.Second
)

// taskDocument is the stored shape of a task in MongoDB.
type taskDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d taskDocument) toModel() models.Task {
	return models.Task{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt,
	}
}

// MongoStore implements the Store interface using a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and uses the tasks collection of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(database).Collection(mongoCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

// Name returns the driver name.
func (s *MongoStore) Name() string {
	return DriverMongo
}

// Ping checks that the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateTask inserts a new task document.
func (s *MongoStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.Text = strings.TrimSpace(task.Text)
	if err := task.Validate(); err != nil {
		return err
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	doc := taskDocument{Text: task.Text, Completed: task.Completed, CreatedAt: task.CreatedAt}
	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	task.ID = oid.Hex()
	return nil
}

// GetTask retrieves a task by its ObjectID hex string.
func (s *MongoStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var doc taskDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task := doc.toModel()
	return &task, nil
}

// ListTasks retrieves one page of tasks, newest first.
func (s *MongoStore) ListTasks(ctx context.Context, opts models.ListOptions) (models.ListResult, error) {
	opts = opts.Normalize()
	filter := searchFilter(opts.Search)

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, filter, findOptions(opts))
	if err != nil {
		return models.ListResult{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return models.ListResult{}, fmt.Errorf("failed to decode tasks: %w", err)
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return models.ListResult{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	items := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toModel())
	}
	return models.ListResult{Items: items, Total: int(total)}, nil
}

// UpdateTask applies a partial update and returns the new document.
func (s *MongoStore) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) (*models.Task, error) {
	if update.IsEmpty() {
		return s.GetTask(ctx, id)
	}

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	set, err := updateDocument(update)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var doc taskDocument
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	task := doc.toModel()
	return &task, nil
}

// DeleteTask removes a task by its ObjectID hex string.
func (s *MongoStore) DeleteTask(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// parseObjectID maps malformed ids to ErrNotFound; such an id can never match.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return oid, nil
}

// searchFilter matches search as a literal, case-insensitive substring of text.
func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	return bson.M{"text": bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}}
}

func findOptions(opts models.ListOptions) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(opts.Skip())).
		SetLimit(int64(opts.Limit))
}

func updateDocument(update models.TaskUpdate) (bson.M, error) {
	set := bson.M{}
	if update.Text != nil {
		text := strings.TrimSpace(*update.Text)
		if text == "" {
			return nil, models.ErrTextRequired
		}
		set["text"] = text
	}
	if update.Completed != nil {
		set["completed"] = *update.Completed
	}
	return set, nil
}
