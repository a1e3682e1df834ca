// Package mongodb implements the catalog document store on MongoDB. Live
// subscriptions are built on change streams: every relevant event triggers
// a re-query, so subscribers always receive full snapshots, never deltas.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/swasher/productus/internal/domain"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	foldersCollection = "folders"
	photosCollection  = "photos"
)

// Store implements domain.CatalogStore using a MongoDB database. Batch
// operations run in a transaction, so the deployment must be a replica set.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// New creates a catalog store on the given database.
func New(client *mongo.Client, databaseName string) *Store {
	store := &Store{
		client:   client,
		database: client.Database(databaseName),
	}
	store.ensureIndexes()
	return store
}

func (s *Store) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.photos().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_root", Value: 1},
				{Key: "folder", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_root", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create indexes for photos")
	}

	_, err = s.folders().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_root", Value: 1},
			},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create indexes for folders")
	}
}

func (s *Store) photos() *mongo.Collection {
	return s.database.Collection(photosCollection)
}

func (s *Store) folders() *mongo.Collection {
	return s.database.Collection(foldersCollection)
}

type photoDoc struct {
	DocID        string `bson:"_id"`
	UserRoot     string `bson:"user_root"`
	domain.Photo `bson:",inline"`
}

type folderDoc struct {
	DocID     string `bson:"_id"`
	UserRoot  string `bson:"user_root"`
	Name      string `bson:"name"`
	CreatedAt int64  `bson:"created_at"`
}

func folderDocID(userRoot, name string) string {
	return userRoot + "/" + name
}

func photoDocID(userRoot, folder, id string) string {
	return userRoot + "/" + folder + "/" + id
}

func (s *Store) ListFolders(ctx context.Context, userRoot string) ([]string, error) {
	cursor, err := s.folders().Find(ctx, bson.M{"user_root": userRoot})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer cursor.Close(ctx)

	names := []string{}
	for cursor.Next(ctx) {
		var doc folderDoc
		if err := cursor.Decode(&doc); err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable folder document")
			continue
		}
		names = append(names, doc.Name)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read folder cursor: %w", err)
	}

	return names, nil
}

func (s *Store) ListPhotos(ctx context.Context, userRoot, folder string) ([]domain.Photo, error) {
	filter := bson.M{"user_root": userRoot, "folder": folder}
	return s.findPhotos(ctx, filter)
}

func (s *Store) listAllPhotos(ctx context.Context, userRoot string) ([]domain.Photo, error) {
	return s.findPhotos(ctx, bson.M{"user_root": userRoot})
}

func (s *Store) findPhotos(ctx context.Context, filter bson.M) ([]domain.Photo, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.photos().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find photos: %w", err)
	}
	defer cursor.Close(ctx)

	photos := []domain.Photo{}
	for cursor.Next(ctx) {
		var doc photoDoc
		if err := cursor.Decode(&doc); err != nil {
			// Best-effort deserialization: a malformed record is dropped
			// from the snapshot rather than failing the whole read.
			log.Warn().Err(err).Msg("Dropping undecodable photo document")
			continue
		}
		photos = append(photos, doc.Photo)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read photo cursor: %w", err)
	}

	return photos, nil
}

func (s *Store) CountPhotos(ctx context.Context, userRoot, folder string) (int64, error) {
	count, err := s.photos().CountDocuments(ctx, bson.M{"user_root": userRoot, "folder": folder})
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}

func (s *Store) WritePhoto(ctx context.Context, userRoot, folder, id string, photo domain.Photo) error {
	doc := photoDoc{
		DocID:    photoDocID(userRoot, folder, id),
		UserRoot: userRoot,
		Photo:    photo,
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.photos().ReplaceOne(ctx, bson.M{"_id": doc.DocID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}

	return nil
}

func (s *Store) UpdatePhotoFields(ctx context.Context, userRoot, folder, id string, fields map[string]any) error {
	filter := bson.M{"_id": photoDocID(userRoot, folder, id)}

	result, err := s.photos().UpdateOne(ctx, filter, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update photo fields: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPhotoNotFound
	}

	return nil
}

func (s *Store) DeletePhoto(ctx context.Context, userRoot, folder, id string) error {
	_, err := s.photos().DeleteOne(ctx, bson.M{"_id": photoDocID(userRoot, folder, id)})
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

// Batch commits all operations in one transaction against the photos
// collection.
func (s *Store) Batch(ctx context.Context, ops []domain.BatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		docID := photoDocID(op.UserRoot, op.Folder, op.PhotoID)

		switch op.Kind {
		case domain.BatchWrite:
			doc := photoDoc{
				DocID:    docID,
				UserRoot: op.UserRoot,
				Photo:    op.Photo,
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": docID}).
				SetReplacement(doc).
				SetUpsert(true))
		case domain.BatchDelete:
			models = append(models, mongo.NewDeleteOneModel().
				SetFilter(bson.M{"_id": docID}))
		}
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return s.photos().BulkWrite(sessCtx, models, options.BulkWrite().SetOrdered(true))
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

func (s *Store) CreateFolderMeta(ctx context.Context, userRoot, name string, createdAt int64) error {
	docID := folderDocID(userRoot, name)

	update := bson.M{
		"$set": bson.M{
			"user_root":  userRoot,
			"name":       name,
			"created_at": createdAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.folders().UpdateOne(ctx, bson.M{"_id": docID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to create folder meta: %w", err)
	}

	return nil
}

func (s *Store) DeleteFolderMeta(ctx context.Context, userRoot, name string) error {
	_, err := s.folders().DeleteOne(ctx, bson.M{"_id": folderDocID(userRoot, name)})
	if err != nil {
		return fmt.Errorf("failed to delete folder meta: %w", err)
	}
	return nil
}

func (s *Store) ObserveFolders(ctx context.Context, userRoot string) (domain.FolderListSubscription, error) {
	pipeline := scopedPipeline(userRoot, nil)
	return watch(ctx, s.folders(), pipeline, func(ctx context.Context) ([]string, error) {
		return s.ListFolders(ctx, userRoot)
	})
}

func (s *Store) ObservePhotos(ctx context.Context, userRoot, folder string) (domain.PhotoListSubscription, error) {
	pipeline := scopedPipeline(userRoot, bson.M{"fullDocument.folder": folder})
	return watch(ctx, s.photos(), pipeline, func(ctx context.Context) ([]domain.Photo, error) {
		return s.ListPhotos(ctx, userRoot, folder)
	})
}

func (s *Store) ObserveAllPhotos(ctx context.Context, userRoot string) (domain.PhotoListSubscription, error) {
	pipeline := scopedPipeline(userRoot, nil)
	return watch(ctx, s.photos(), pipeline, func(ctx context.Context) ([]domain.Photo, error) {
		return s.listAllPhotos(ctx, userRoot)
	})
}

// scopedPipeline matches insert/update events for one user root. Delete
// events carry no full document, so they pass through for every user; the
// re-query they trigger is scoped, so the snapshot stays correct either way.
func scopedPipeline(userRoot string, extra bson.M) mongo.Pipeline {
	scoped := bson.M{"fullDocument.user_root": userRoot}
	for key, value := range extra {
		scoped[key] = value
	}

	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				scoped,
				bson.M{"operationType": "delete"},
			},
		}}},
	}
}
