package resolver

import (
	"context"

	"recbase/internal/catalog"
	"recbase/internal/services"
)

// RemoveFile deletes a file. Removing the last file of a match removes the
// match; otherwise the remaining files are reclassified against the new
// canonical duration.
func (r *Resolver) RemoveFile(ctx context.Context, fileID int64) (catalog.Removal, error) {
	var removal catalog.Removal
	err := r.store.WithTx(ctx, func(tx catalog.Tx) error {
		removal = catalog.Removal{}
		file, err := tx.FileByID(ctx, fileID)
		if err != nil {
			return err
		}
		if file == nil {
			return services.Wrap(services.ErrNotFound, "", "file", "file does not exist", nil)
		}
		removal.MatchID = file.MatchID
		removal.FilesRemoved = 1
		removal.BlobKeys = []string{file.BlobKey}

		files, err := tx.MatchFiles(ctx, file.MatchID)
		if err != nil {
			return err
		}
		if len(files) <= 1 {
			removal.MatchRemoved = true
			return tx.DeleteMatch(ctx, file.MatchID)
		}

		if err := tx.DeleteFile(ctx, fileID); err != nil {
			return err
		}
		match, err := tx.MatchByID(ctx, file.MatchID)
		if err != nil {
			return err
		}
		if match == nil {
			return services.Wrap(services.ErrNotFound, "", "match", "match does not exist", nil)
		}
		_, err = reclassify(ctx, tx, match, r.ratio)
		return err
	})
	if err != nil {
		return catalog.Removal{}, classifyError(err)
	}
	return removal, nil
}
