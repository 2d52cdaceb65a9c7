package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// jsonScalar passes batch-table metadata through unchanged.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(v interface{}) interface{} { return v },
	ParseValue:  func(v interface{}) interface{} { return v },
	ParseLiteral: func(v ast.Value) interface{} {
		return v.GetValue()
	},
})

func regionList(r domain.Region) []float64 {
	return r[:]
}

func cuboidMap(id string, cb domain.Cuboid) map[string]interface{} {
	return map[string]interface{}{
		"spatialId": id,
		"region":    regionList(cb.Region),
		"scale":     cb.Scale,
		"location":  cb.Location,
		"metadata":  cb.Metadata,
	}
}

func barrierMap(b *domain.Barrier) map[string]interface{} {
	defs := make([]map[string]interface{}, len(b.Definitions))
	for i, d := range b.Definitions {
		defs[i] = map[string]interface{}{"spatialId": d.SpatialID, "risk": d.Risk}
	}
	return map[string]interface{}{
		"id":                 b.ID,
		"status":             string(b.Status),
		"createdAt":          b.CreatedAt.Format(time.RFC3339),
		"barrierDefinitions": defs,
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	cartesianType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cartesian3",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
			"z": &graphql.Field{Type: graphql.Float},
		},
	})

	cuboidType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cuboid",
		Fields: graphql.Fields{
			"spatialId": &graphql.Field{Type: graphql.String},
			"region": &graphql.Field{
				Type:        graphql.NewList(graphql.Float),
				Description: "[west, south, east, north] in radians, then min and max height in metres",
			},
			"scale":    &graphql.Field{Type: cartesianType},
			"location": &graphql.Field{Type: cartesianType},
			"metadata": &graphql.Field{Type: jsonScalar},
		},
	})

	definitionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BarrierDefinition",
		Fields: graphql.Fields{
			"spatialId": &graphql.Field{Type: graphql.String},
			"risk":      &graphql.Field{Type: graphql.Int},
		},
	})

	barrierType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Barrier",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"createdAt":          &graphql.Field{Type: graphql.String},
			"barrierDefinitions": &graphql.Field{Type: graphql.NewList(definitionType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"cuboid": &graphql.Field{
				Type:        cuboidType,
				Description: "Cuboid of a spatial ID (z/f/x/y)",
				Args: graphql.FieldConfigArgument{
					"spatialId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := domain.ParseSpatialID(p.Args["spatialId"].(string), nil)
					if err != nil {
						return nil, err
					}
					cb, err := deps.Tilesets.Cuboid(p.Context, id)
					if err != nil {
						return nil, err
					}
					return cuboidMap(id.String(), cb), nil
				},
			},
			"region": &graphql.Field{
				Type:        graphql.NewList(graphql.Float),
				Description: "Bounding region of a set of spatial IDs",
				Args: graphql.FieldConfigArgument{
					"spatialIds": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["spatialIds"].([]interface{})
					if deps.MaxAddresses > 0 && len(raw) > deps.MaxAddresses {
						return nil, fmt.Errorf("too many addresses: %d (max %d)", len(raw), deps.MaxAddresses)
					}
					addrs := make([]cuboid.Address, 0, len(raw))
					for _, v := range raw {
						id, err := domain.ParseSpatialID(v.(string), nil)
						if err != nil {
							return nil, err
						}
						addrs = append(addrs, id)
					}
					r, err := deps.Tilesets.Region(p.Context, addrs)
					if err != nil {
						return nil, err
					}
					return regionList(r), nil
				},
			},
			"geoidHeight": &graphql.Field{
				Type:        graphql.Float,
				Description: "Geoid height in metres at a point in degrees",
				Args: graphql.FieldConfigArgument{
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Geoid.Height(p.Context, p.Args["lon"].(float64), p.Args["lat"].(float64))
				},
			},
			"barrier": &graphql.Field{
				Type:        barrierType,
				Description: "Get a barrier by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b, err := deps.Barriers.Get(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return barrierMap(b), nil
				},
			},
			"barriers": &graphql.Field{
				Type:        graphql.NewList(barrierType),
				Description: "List barriers, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					list, err := deps.Barriers.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(list))
					for i := range list {
						out[i] = barrierMap(&list[i])
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
