package provider

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/model"
	"github.com/sells-group/lead-intel/internal/prospect"
)

// Normalize converts raw dataset items into internal result rows using the
// normalizer for the given job kind. Provider schemas differ per capability;
// this is the only place those shapes are known. Items that normalize to a
// fully empty row are dropped and logged, never fatal.
func Normalize(kind model.JobKind, items []map[string]any) []model.ResultRow {
	norm := normalizers[kind]
	if norm == nil {
		norm = normalizeGeneric
	}

	rows := make([]model.ResultRow, 0, len(items))
	for i, item := range items {
		row := norm(item)
		if row.NativeID == "" && row.URL == "" && row.Name == "" {
			zap.L().Debug("normalize: dropping unidentifiable item",
				zap.String("kind", string(kind)),
				zap.Int("index", i),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

type normalizeFunc func(item map[string]any) model.ResultRow

var normalizers = map[model.JobKind]normalizeFunc{
	model.KindDirectoryLookup:     normalizeDirectory,
	model.KindSocialProfileLookup: normalizeSocial,
	model.KindDecisionMakerLookup: normalizeDecisionMaker,
	model.KindContactScrape:       normalizeContact,
	model.KindTechStack:           normalizeTechStack,
}

// normalizeDirectory handles place-directory items: the provider assigns a
// stable place id, which becomes the row's native identifier.
func normalizeDirectory(item map[string]any) model.ResultRow {
	row := baseRow(item)
	row.NativeID = str(item, "placeId", "place_id")
	row.Fields = map[string]any{
		prospect.FieldPhone:   item["phone"],
		prospect.FieldAddress: item["address"],
	}
	return row
}

func normalizeSocial(item map[string]any) model.ResultRow {
	row := baseRow(item)
	fields := map[string]any{
		prospect.FieldFacebook:  item["facebooks"],
		prospect.FieldInstagram: item["instagrams"],
		prospect.FieldLinkedIn:  item["linkedIns"],
		prospect.FieldTwitter:   item["twitters"],
	}
	// Some social scrapers nest profiles under a socials map instead of
	// top-level lists.
	if socials, ok := item["socials"].(map[string]any); ok {
		fields[prospect.FieldFacebook] = socials["facebook"]
		fields[prospect.FieldInstagram] = socials["instagram"]
		fields[prospect.FieldLinkedIn] = socials["linkedin"]
		fields[prospect.FieldTwitter] = socials["twitter"]
	}
	row.Fields = fields
	return row
}

func normalizeDecisionMaker(item map[string]any) model.ResultRow {
	row := baseRow(item)
	row.Fields = map[string]any{
		prospect.FieldDecisionMakerName:  str(item, "decisionMakerName", "contact_name", "fullName"),
		prospect.FieldDecisionMakerEmail: str(item, "decisionMakerEmail", "contact_email"),
		prospect.FieldDecisionMakerPhone: str(item, "decisionMakerPhone", "contact_phone"),
	}
	return row
}

func normalizeContact(item map[string]any) model.ResultRow {
	row := baseRow(item)
	row.Fields = map[string]any{
		prospect.FieldEmail:   item["emails"],
		prospect.FieldPhone:   item["phones"],
		prospect.FieldAddress: item["address"],
	}
	return row
}

func normalizeTechStack(item map[string]any) model.ResultRow {
	row := baseRow(item)
	row.Fields = map[string]any{
		prospect.FieldCMS: str(item, "cms", "platform"),
	}
	return row
}

// normalizeGeneric passes canonical field keys through untouched. Used for
// kinds without a dedicated normalizer so new capabilities degrade gracefully.
func normalizeGeneric(item map[string]any) model.ResultRow {
	row := baseRow(item)
	fields := make(map[string]any, len(item))
	for k, v := range item {
		fields[k] = v
	}
	delete(fields, "url")
	delete(fields, "website")
	delete(fields, "title")
	delete(fields, "name")
	row.Fields = fields
	return row
}

func baseRow(item map[string]any) model.ResultRow {
	return model.ResultRow{
		URL:  str(item, "url", "website", "domain"),
		Name: str(item, "title", "name", "companyName"),
	}
}

// str returns the first non-empty string value among the given keys.
func str(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}
