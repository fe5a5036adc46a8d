package analytics

import (
	"fmt"

	"FinSignal/internal/domain/models"
)

const (
	spreadTightnessScale = 0.001
	microImbalanceWeight = 0.7
	microTightnessWeight = 0.3
)

// Micro is the microstructure reading of one top-of-book snapshot.
type Micro struct {
	Direction  models.Direction
	Confidence float64
	RelSpread  float64
	// Imbalance is the book imbalance, blended with the depth bias when one was given.
	Imbalance float64
}

// AnalyzeMicro derives direction and confidence from the best bid/ask and an
// optional depth bias. A crossed or non-positive book returns ErrInvalidBook.
func AnalyzeMicro(book models.TopOfBook, depthBias *float64) (Micro, error) {
	if !book.Valid() {
		return Micro{}, fmt.Errorf("bid=%g ask=%g: %w", book.Bid, book.Ask, models.ErrInvalidBook)
	}
	mid := (book.Bid + book.Ask) / 2
	rel := (book.Ask - book.Bid) / mid
	imb := (book.BidQty - book.AskQty) / (book.BidQty + book.AskQty + 1e-9)
	if depthBias != nil {
		imb = 0.5*imb + 0.5*(*depthBias)
	}

	dir := models.DirectionDown
	if imb > 0 {
		dir = models.DirectionUp
	}
	tight := 1 - clamp(rel/spreadTightnessScale, 0, 1)
	return Micro{
		Direction:  dir,
		Confidence: clamp01(microImbalanceWeight*abs(imb) + microTightnessWeight*tight),
		RelSpread:  rel,
		Imbalance:  imb,
	}, nil
}
