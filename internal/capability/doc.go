// Package capability implements the annotation side table and the discovery
// scanner that feed the registration pipeline.
//
// Application services declare what they expose by annotating methods with
// declarative definitions:
//
//	svc := &WeatherService{}
//	catalog := capability.NewCatalog()
//	catalog.Annotate(capability.Definition{
//		Kind:        capability.KindTool,
//		Name:        "forecast",
//		Description: "Returns the forecast for a city",
//		Params: []capability.ToolParam{
//			{Name: "city", Type: "string", Required: true},
//		},
//	}, (*WeatherService).Forecast)
//
// At bootstrap, a Scanner walks every managed instance, recovers each
// method's identity through reflection, and yields the annotated methods as
// bound handlers ready for registration. Annotate with the method expression
// matching the receiver form the instance is stored under (use (*T).Method
// when the instance is a *T).
//
// Discovery is deliberately forgiving: definitions are not validated here.
// Validation and normalization happen in the registrar, where a malformed
// definition is skipped with a warning instead of failing startup.
package capability
