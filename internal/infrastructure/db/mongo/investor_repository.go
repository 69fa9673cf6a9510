package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/investae/investments-api/internal/core/domain"
)

const (
	collectionInvestors   = "investors"
	collectionInvestments = "investments"
)

// InvestorRepository stores investor records and the investments they own.
type InvestorRepository struct {
	investors   *mongo.Collection
	investments *mongo.Collection
	now         func() time.Time
}

func NewInvestorRepository(db *mongo.Database) *InvestorRepository {
	return &InvestorRepository{
		investors:   db.Collection(collectionInvestors),
		investments: db.Collection(collectionInvestments),
		now:         time.Now,
	}
}

type investorDoc struct {
	NationalID string `bson:"national_id"`
	CreatedAt  int64  `bson:"created_at"`
}

type dailyReturnDoc struct {
	Date              time.Time `bson:"date"`
	SharePrice        float64   `bson:"share_price"`
	DailyRate         float64   `bson:"daily_rate"`
	AccumulatedAmount float64   `bson:"accumulated_amount"`
}

type investmentDoc struct {
	ID                string           `bson:"_id"`
	NationalID        string           `bson:"national_id"`
	BankName          string           `bson:"bank_name,omitempty"`
	Name              string           `bson:"name"`
	Type              string           `bson:"type"`
	InitialAmount     float64          `bson:"initial_amount"`
	InitialSharePrice float64          `bson:"initial_share_price"`
	ReturnRate        float64          `bson:"return_rate"`
	InitialShares     int              `bson:"initial_shares"`
	DailyReturns      []dailyReturnDoc `bson:"daily_returns"`
	CreatedAt         int64            `bson:"created_at"`
	UpdatedAt         int64            `bson:"updated_at"`
}

func toInvestmentDoc(inv *domain.Investment) investmentDoc {
	returns := make([]dailyReturnDoc, 0, len(inv.DailyReturns))
	for _, dr := range inv.DailyReturns {
		returns = append(returns, dailyReturnDoc{
			Date:              dr.Date.UTC(),
			SharePrice:        dr.SharePrice,
			DailyRate:         dr.DailyRate,
			AccumulatedAmount: dr.AccumulatedAmount,
		})
	}
	return investmentDoc{
		ID:                inv.ID,
		NationalID:        inv.NationalID.String(),
		BankName:          inv.BankName,
		Name:              inv.Name,
		Type:              string(inv.Type),
		InitialAmount:     inv.InitialAmount,
		InitialSharePrice: inv.InitialSharePrice,
		ReturnRate:        inv.ReturnRate,
		InitialShares:     inv.InitialShares,
		DailyReturns:      returns,
		CreatedAt:         inv.CreatedAt.Unix(),
		UpdatedAt:         inv.UpdatedAt.Unix(),
	}
}

// replacementDocs maps invs for InsertMany, forcing every document onto owner.
func replacementDocs(owner domain.NationalID, invs []*domain.Investment) []interface{} {
	docs := make([]interface{}, 0, len(invs))
	for _, inv := range invs {
		doc := toInvestmentDoc(inv)
		doc.NationalID = owner.String()
		docs = append(docs, doc)
	}
	return docs
}

func (d investmentDoc) toDomain() (*domain.Investment, error) {
	owner, err := domain.ParseNationalID(d.NationalID)
	if err != nil {
		return nil, fmt.Errorf("stored investment %s: %w", d.ID, err)
	}
	returns := make([]domain.DailyReturn, 0, len(d.DailyReturns))
	for _, dr := range d.DailyReturns {
		returns = append(returns, domain.DailyReturn{
			Date:              dr.Date.UTC(),
			SharePrice:        dr.SharePrice,
			DailyRate:         dr.DailyRate,
			AccumulatedAmount: dr.AccumulatedAmount,
		})
	}
	return &domain.Investment{
		ID:                d.ID,
		NationalID:        owner,
		BankName:          d.BankName,
		Name:              d.Name,
		Type:              domain.InvestmentType(d.Type),
		InitialAmount:     d.InitialAmount,
		InitialSharePrice: d.InitialSharePrice,
		ReturnRate:        d.ReturnRate,
		InitialShares:     d.InitialShares,
		DailyReturns:      returns,
		CreatedAt:         unixToTime(d.CreatedAt),
		UpdatedAt:         unixToTime(d.UpdatedAt),
	}, nil
}

// EnsureInvestor upserts the investor record. created is false when a record
// for id already existed.
func (r *InvestorRepository) EnsureInvestor(ctx context.Context, id domain.NationalID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"national_id": id.String()}
	update := bson.M{"$setOnInsert": investorDoc{NationalID: id.String(), CreatedAt: r.now().Unix()}}
	res, err := r.investors.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts race on the unique index; the loser sees the winner's record.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("upsert investor: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *InvestorRepository) FindInvestor(ctx context.Context, id domain.NationalID) (*domain.Investor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc investorDoc
	if err := r.investors.FindOne(ctx, bson.M{"national_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvestorNotFound
		}
		return nil, fmt.Errorf("find investor: %w", err)
	}
	return &domain.Investor{NationalID: id, CreatedAt: unixToTime(doc.CreatedAt)}, nil
}

func (r *InvestorRepository) ListInvestors(ctx context.Context) ([]*domain.Investor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.investors.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "national_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list investors: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []investorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode investors: %w", err)
	}

	out := make([]*domain.Investor, 0, len(docs))
	for _, d := range docs {
		id, err := domain.ParseNationalID(d.NationalID)
		if err != nil {
			return nil, fmt.Errorf("stored investor: %w", err)
		}
		out = append(out, &domain.Investor{NationalID: id, CreatedAt: unixToTime(d.CreatedAt)})
	}
	return out, nil
}

// DeleteInvestor removes the investor and then every investment it owned.
func (r *InvestorRepository) DeleteInvestor(ctx context.Context, id domain.NationalID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.investors.DeleteOne(ctx, bson.M{"national_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete investor: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInvestorNotFound
	}
	if _, err := r.investments.DeleteMany(ctx, bson.M{"national_id": id.String()}); err != nil {
		return fmt.Errorf("delete investor investments: %w", err)
	}
	return nil
}

func (r *InvestorRepository) CreateInvestment(ctx context.Context, inv *domain.Investment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.investments.InsertOne(ctx, toInvestmentDoc(inv)); err != nil {
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

func (r *InvestorRepository) FindInvestment(ctx context.Context, id string) (*domain.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc investmentDoc
	if err := r.investments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("find investment: %w", err)
	}
	return doc.toDomain()
}

func (r *InvestorRepository) ListInvestments(ctx context.Context) ([]*domain.Investment, error) {
	return r.listInvestments(ctx, bson.M{})
}

func (r *InvestorRepository) ListInvestmentsByOwner(ctx context.Context, owner domain.NationalID) ([]*domain.Investment, error) {
	return r.listInvestments(ctx, bson.M{"national_id": owner.String()})
}

func (r *InvestorRepository) UpdateInvestment(ctx context.Context, inv *domain.Investment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.investments.ReplaceOne(ctx, bson.M{"_id": inv.ID}, toInvestmentDoc(inv))
	if err != nil {
		return fmt.Errorf("update investment: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvestmentNotFound
	}
	return nil
}

func (r *InvestorRepository) DeleteInvestment(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.investments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInvestmentNotFound
	}
	return nil
}

// ReplaceInvestments deletes the investments owned by owner and inserts invs.
// The two steps are not atomic: a failed insert leaves owner with no investments.
func (r *InvestorRepository) ReplaceInvestments(ctx context.Context, owner domain.NationalID, invs []*domain.Investment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.investments.DeleteMany(ctx, bson.M{"national_id": owner.String()}); err != nil {
		return fmt.Errorf("clear investments: %w", err)
	}
	if len(invs) == 0 {
		return nil
	}
	if _, err := r.investments.InsertMany(ctx, replacementDocs(owner, invs)); err != nil {
		return fmt.Errorf("insert investments: %w", err)
	}
	return nil
}

// EnsureIndexes creates the investor uniqueness index and the owner lookup index.
func (r *InvestorRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.investors.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "national_id", Value: 1}},
		Options: options.Index().SetName(indexNationalID).SetUnique(true),
	}); err != nil {
		return fmt.Errorf("investors indexes: %w", err)
	}

	_, err := r.investments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "national_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("investments indexes: %w", err)
	}
	return nil
}

func (r *InvestorRepository) listInvestments(ctx context.Context, filter bson.M) ([]*domain.Investment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.investments.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []investmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode investments: %w", err)
	}

	out := make([]*domain.Investment, 0, len(docs))
	for _, d := range docs {
		inv, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
