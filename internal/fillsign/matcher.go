package fillsign

import (
	"context"
	"sort"
	"strings"

	"github.com/docspace-portals/backend/internal/metrics"
	"github.com/docspace-portals/backend/internal/models"
	"go.uber.org/zap"
)

// MatchesInstanceTitle reports whether title names a filled instance of
// templateBase for patientName. The platform names instances either
// "{patient} - {template}" or "{n} - {patient} - {template}".
func MatchesInstanceTitle(title, patientName, templateBase string) bool {
	t := normalizeTitle(title)
	patient := normalizeTitle(patientName)
	base := normalizeTitle(templateBase)
	if t == "" || patient == "" || base == "" {
		return false
	}

	prefix := patient + " -"
	if strings.HasPrefix(t, prefix) && strings.Contains(t[len(prefix):], base) {
		return true
	}

	if rest, ok := trimNumberPrefix(t); ok && strings.HasPrefix(rest, patient) {
		if rest, ok = trimSeparator(rest[len(patient):]); ok {
			return strings.Contains(rest, base)
		}
	}
	return false
}

// trimNumberPrefix strips a leading "<digits> - " from a normalized title.
func trimNumberPrefix(t string) (string, bool) {
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 {
		return t, false
	}
	return trimSeparator(t[i:])
}

// trimSeparator strips a hyphen and the spaces around it.
func trimSeparator(s string) (string, bool) {
	s = strings.TrimLeft(s, " ")
	if !strings.HasPrefix(s, "-") {
		return s, false
	}
	return strings.TrimLeft(s[1:], " "), true
}

// pass holds the caches of a single reconciliation call.
type pass struct {
	platform      Platform
	logger        *zap.Logger
	folderCache   map[string][]string
	fileInfoCache map[string]*models.FileInfo
}

func newPass(platform Platform, logger *zap.Logger) *pass {
	return &pass{
		platform:      platform,
		logger:        logger,
		folderCache:   make(map[string][]string),
		fileInfoCache: make(map[string]*models.FileInfo),
	}
}

// resolveFormFolderIDs returns every sub-folder of parentFolderID whose title
// matches templateTitle once both drop their extensions.
func (p *pass) resolveFormFolderIDs(ctx context.Context, parentFolderID, templateTitle string) []string {
	if parentFolderID == "" {
		return nil
	}
	target := templateKey(templateTitle)
	key := parentFolderID + "|" + target
	if ids, ok := p.folderCache[key]; ok {
		return ids
	}

	listing, err := p.platform.GetFolderContents(ctx, parentFolderID)
	if err != nil {
		p.logger.Debug("folder listing failed, treating as empty",
			zap.String("folder_id", parentFolderID), zap.Error(err))
		metrics.RecordLookupFailure("folder")
		p.folderCache[key] = nil
		return nil
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, item := range listing.Items {
		if item.Type != models.ItemTypeFolder {
			continue
		}
		if templateKey(item.Title) != target {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	p.folderCache[key] = ids
	return ids
}

// fileInfo returns the memoized metadata for fileID.
func (p *pass) fileInfo(ctx context.Context, fileID string) (*models.FileInfo, bool) {
	if info, ok := p.fileInfoCache[fileID]; ok {
		return info, info != nil
	}
	info, err := p.platform.GetFileInfo(ctx, fileID)
	if err != nil || info == nil {
		p.logger.Debug("file info lookup failed, skipping file",
			zap.String("file_id", fileID), zap.Error(err))
		metrics.RecordLookupFailure("file")
		p.fileInfoCache[fileID] = nil
		return nil, false
	}
	cached := *info
	if cached.ID == "" {
		cached.ID = fileID
	}
	p.fileInfoCache[fileID] = &cached
	return &cached, true
}

// listInstances collects the instances of templateTitle for patientName
// across folderIDs, oldest first.
func (p *pass) listInstances(ctx context.Context, folderIDs []string, patientName, templateTitle string) []models.FileInfo {
	base := StripExtension(templateTitle)
	var instances []models.FileInfo
	seen := make(map[string]struct{})

	for _, folderID := range folderIDs {
		listing, err := p.platform.GetFolderContents(ctx, folderID)
		if err != nil {
			p.logger.Debug("instance folder listing failed, treating as empty",
				zap.String("folder_id", folderID), zap.Error(err))
			metrics.RecordLookupFailure("folder")
			continue
		}
		for _, item := range listing.Items {
			if item.Type != models.ItemTypeFile {
				continue
			}
			if !MatchesInstanceTitle(item.Title, patientName, base) {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			info, ok := p.fileInfo(ctx, item.ID)
			if !ok {
				continue
			}
			seen[item.ID] = struct{}{}
			instances = append(instances, *info)
		}
	}

	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Created < instances[j].Created
	})
	return instances
}
