package cli

import "geoquiz-service/internal/domain"

// sampleQuizzes backs the static loader when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"world-capitals": {
			ID:          "world-capitals",
			Name:        "World capitals",
			Description: "Pin the capital on the map.",
			Language:    "en",
			Questions: []domain.Question{
				{ID: "0", Text: "Paris", Answer: domain.Point(48.8566, 2.3522)},
				{ID: "1", Text: "Nairobi", Answer: domain.Point(-1.2921, 36.8219)},
				{ID: "2", Text: "Canberra", Answer: domain.Point(-35.2809, 149.1300)},
				{ID: "3", Text: "Lima", Answer: domain.Point(-12.0464, -77.0428)},
			},
		},
		"swiss-lakes": {
			ID:       "swiss-lakes",
			Name:     "Swiss lakes",
			Language: "en",
			Questions: []domain.Question{
				{ID: "0", Text: "Lake Geneva", Answer: domain.Geometry{
					Type: domain.GeometryPolygon,
					Coordinates: []domain.Coordinate{
						{Lat: 46.46, Lng: 6.14}, {Lat: 46.52, Lng: 6.55}, {Lat: 46.45, Lng: 6.92},
						{Lat: 46.37, Lng: 6.78}, {Lat: 46.38, Lng: 6.35},
					},
				}},
				{ID: "1", Text: "Lake Constance", Answer: domain.Geometry{
					Type: domain.GeometryPolygon,
					Coordinates: []domain.Coordinate{
						{Lat: 47.82, Lng: 9.05}, {Lat: 47.63, Lng: 9.75}, {Lat: 47.48, Lng: 9.57}, {Lat: 47.64, Lng: 9.17},
					},
				}},
			},
		},
	}
}
