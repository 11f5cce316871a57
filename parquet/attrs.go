// Package parquet implements the page codec that splits and joins level
// bytes from value bytes for the three Parquet page variants, and slices
// or packs value bytes per element according to datatype and encoding.
package parquet

import (
	"strconv"

	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
)

// Attrs is the validated, typed form of a page's encoding attribute map.
// Raw string attributes are converted once during sequencer parameter
// validation; every field here is already the correct Go type.
type Attrs struct {
	PageType enums.PageType

	DataPageNumValues           int
	DataPageMaxDefinitionLevel  int
	DataPageMaxRepetitionLevel  int
	PageV1DefinitionLevelEncoding enums.Encoding
	PageV1RepetitionLevelEncoding enums.Encoding

	PageV2DefinitionLevelsByteLength int
	PageV2RepetitionLevelsByteLength int
	PageV2NumNulls                   int
	PageV2IsCompressed                bool

	PageEncoding enums.Encoding
}

// ParseAttrs converts a raw string attribute map into Attrs, validating
// every recognised key per the encoding-attribute-conversion stage.
func ParseAttrs(pageType enums.PageType, raw map[string]string) (Attrs, error) {
	a := Attrs{PageType: pageType}

	getInt := func(key string, required bool) (int, error) {
		s, ok := raw[key]
		if !ok {
			if required {
				return 0, dbpserr.NewInvalidInput("parquet: missing required attribute %q", key)
			}
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, dbpserr.NewInvalidInput("parquet: attribute %q must be a non-negative integer, got %q", key, s)
		}
		return n, nil
	}

	getBool := func(key string, required bool) (bool, error) {
		s, ok := raw[key]
		if !ok {
			if required {
				return false, dbpserr.NewInvalidInput("parquet: missing required attribute %q", key)
			}
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, dbpserr.NewInvalidInput("parquet: attribute %q must be a boolean, got %q", key, s)
		}
		return b, nil
	}

	switch pageType {
	case enums.DictionaryPage:
		// no level-related attributes apply.

	case enums.DataPageV2:
		v, err := getInt("page_v2_definition_levels_byte_length", true)
		if err != nil {
			return Attrs{}, err
		}
		a.PageV2DefinitionLevelsByteLength = v

		v, err = getInt("page_v2_repetition_levels_byte_length", true)
		if err != nil {
			return Attrs{}, err
		}
		a.PageV2RepetitionLevelsByteLength = v

		v, err = getInt("page_v2_num_nulls", false)
		if err != nil {
			return Attrs{}, err
		}
		a.PageV2NumNulls = v

		b, err := getBool("page_v2_is_compressed", true)
		if err != nil {
			return Attrs{}, err
		}
		a.PageV2IsCompressed = b

	case enums.DataPageV1:
		v, err := getInt("data_page_max_definition_level", true)
		if err != nil {
			return Attrs{}, err
		}
		a.DataPageMaxDefinitionLevel = v

		v, err = getInt("data_page_max_repetition_level", true)
		if err != nil {
			return Attrs{}, err
		}
		a.DataPageMaxRepetitionLevel = v

		if a.DataPageMaxDefinitionLevel > 0 {
			s, ok := raw["page_v1_definition_level_encoding"]
			if !ok {
				return Attrs{}, dbpserr.NewInvalidInput("parquet: missing page_v1_definition_level_encoding")
			}
			enc, ok := enums.ParseEncoding(s)
			if !ok || enc != enums.Rle {
				return Attrs{}, dbpserr.NewInvalidInput("parquet: page_v1_definition_level_encoding must be RLE, got %q", s)
			}
			a.PageV1DefinitionLevelEncoding = enc
		}
		if a.DataPageMaxRepetitionLevel > 0 {
			s, ok := raw["page_v1_repetition_level_encoding"]
			if !ok {
				return Attrs{}, dbpserr.NewInvalidInput("parquet: missing page_v1_repetition_level_encoding")
			}
			enc, ok := enums.ParseEncoding(s)
			if !ok || enc != enums.Rle {
				return Attrs{}, dbpserr.NewInvalidInput("parquet: page_v1_repetition_level_encoding must be RLE, got %q", s)
			}
			a.PageV1RepetitionLevelEncoding = enc
		}

	default:
		return Attrs{}, dbpserr.NewInvalidInput("parquet: unrecognised page_type %s", pageType)
	}

	v, err := getInt("data_page_num_values", false)
	if err != nil {
		return Attrs{}, err
	}
	a.DataPageNumValues = v

	if s, ok := raw["page_encoding"]; ok {
		enc, ok := enums.ParseEncoding(s)
		if !ok {
			return Attrs{}, dbpserr.NewInvalidInput("parquet: unrecognised page_encoding %q", s)
		}
		a.PageEncoding = enc
	} else {
		a.PageEncoding = enums.UndefinedEncoding
	}

	return a, nil
}
