// Package qdrant provides the derived claim mirror using Qdrant. One point
// per claim, tagged with the owning entity, searched by embedding to select
// the bounded related-claim set for the semantic stage.
package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
)

// Index implements ports.ClaimIndex using Qdrant.
type Index struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewIndex creates a new Qdrant claim index.
func NewIndex(cfg config.QdrantConfig) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Index{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	if x.conn != nil {
		return x.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (x *Index) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := x.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: x.collection,
	})
	if err == nil {
		return nil
	}

	_, err = x.client.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// claimPointID derives a stable point ID for a claim so re-mirroring an
// entity replaces its previous points.
func claimPointID(entityID string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entityID+"#"+strconv.Itoa(i))).String()
}

// UpsertEntity mirrors all claims of one entity, replacing any previous
// claims mirrored for it.
func (x *Index) UpsertEntity(ctx context.Context, entity *entities.Entity, embeddings [][]float32) error {
	if len(embeddings) != len(entity.Claims) {
		return fmt.Errorf("claim/embedding count mismatch: %d claims, %d embeddings", len(entity.Claims), len(embeddings))
	}

	if err := x.RemoveEntity(ctx, entity.ID); err != nil {
		return err
	}
	if len(entity.Claims) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(entity.Claims))
	for i, claim := range entity.Claims {
		point := &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: claimPointID(entity.ID, i)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: embeddings[i]},
				},
			},
			Payload: map[string]*pb.Value{
				"entity_id":   {Kind: &pb.Value_StringValue{StringValue: entity.ID}},
				"entity_name": {Kind: &pb.Value_StringValue{StringValue: entity.Name}},
				"claim":       {Kind: &pb.Value_StringValue{StringValue: claim.Text}},
				"references":  {Kind: &pb.Value_StringValue{StringValue: strings.Join(claim.References, ",")}},
			},
		}
		points = append(points, point)
	}

	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting claim points: %w", err)
	}
	return nil
}

// RemoveEntity drops all mirrored claims of an entity.
func (x *Index) RemoveEntity(ctx context.Context, entityID string) error {
	_, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{entityCondition(entityID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting claim points: %w", err)
	}
	return nil
}

// Search returns the stored claims nearest to the query embedding,
// excluding claims owned by excludeEntityID.
func (x *Index) Search(ctx context.Context, embedding []float32, excludeEntityID string, limit int) ([]ports.StoredClaim, error) {
	req := &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if excludeEntityID != "" {
		req.Filter = &pb.Filter{
			MustNot: []*pb.Condition{entityCondition(excludeEntityID)},
		}
	}

	resp, err := x.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching claim points: %w", err)
	}

	claims := make([]ports.StoredClaim, 0, len(resp.Result))
	for _, point := range resp.Result {
		payload := point.Payload
		claim := entities.Claim{Text: getStringValue(payload, "claim")}
		if refs := getStringValue(payload, "references"); refs != "" {
			claim.References = strings.Split(refs, ",")
		}
		claims = append(claims, ports.StoredClaim{
			EntityID:   getStringValue(payload, "entity_id"),
			EntityName: getStringValue(payload, "entity_name"),
			Claim:      claim,
			Score:      float64(point.Score),
		})
	}
	return claims, nil
}

// Reset drops the whole mirror so it can be rebuilt.
func (x *Index) Reset(ctx context.Context) error {
	_, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("resetting claim mirror: %w", err)
	}
	return nil
}

// entityCondition matches points owned by an entity.
func entityCondition(entityID string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: "entity_id",
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: entityID},
				},
			},
		},
	}
}

// getStringValue extracts a string payload value.
func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
