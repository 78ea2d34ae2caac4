package importer

import (
	"fmt"
	"io"
)

type Service struct {
	csvParser Parser
}

func NewService() *Service {
	return &Service{
		csvParser: NewCSVParser(),
	}
}

func (s *Service) Import(format Format, r io.Reader) ([]Row, error) {
	var parser Parser

	switch format {
	case FormatCSV:
		parser = s.csvParser
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return parser.Parse(r)
}
