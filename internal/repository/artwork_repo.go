package repository

import (
	"database/sql"

	"github.com/atelier/commissions/internal/domain"
)

type ArtworkRepo struct {
	db *sql.DB
}

func NewArtworkRepo(db *sql.DB) *ArtworkRepo {
	return &ArtworkRepo{db: db}
}

func (r *ArtworkRepo) Insert(a *domain.Artwork) error {
	_, err := r.db.Exec(
		`INSERT INTO artworks
		(id, artist_id, title, price, product_id, product_type_id, available, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.ArtistID, a.Title, decToStr(a.Price), a.ProductID, a.ProductTypeID,
		boolToInt(a.Available), timeToStr(a.CreatedAt),
	)
	return err
}

// GetByProductID resolves the artwork behind a catalog product, which is how
// a sold line finds its owning artist.
func (r *ArtworkRepo) GetByProductID(productID string) (*domain.Artwork, error) {
	row := r.db.QueryRow(selectArtwork+" WHERE product_id = ?", productID)
	a, err := scanArtwork(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *ArtworkRepo) ListByArtist(artistID string) ([]domain.Artwork, error) {
	rows, err := r.db.Query(
		selectArtwork+" WHERE artist_id = ? ORDER BY created_at DESC", artistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artworks []domain.Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		artworks = append(artworks, *a)
	}
	return artworks, rows.Err()
}

const selectArtwork = `SELECT id, artist_id, title, price, product_id, product_type_id,
	available, created_at FROM artworks`

func scanArtwork(s rowScanner) (*domain.Artwork, error) {
	var a domain.Artwork
	var price, createdAt string
	var available int

	err := s.Scan(
		&a.ID, &a.ArtistID, &a.Title, &price, &a.ProductID, &a.ProductTypeID,
		&available, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.Price = strToDec(price)
	a.Available = available == 1
	a.CreatedAt = strToTime(createdAt)
	return &a, nil
}
