package uniform

// Block names of the default catalog.
const (
	BlockTransformations  = "Transformations"
	BlockCamera           = "Camera"
	BlockDirectionalLight = "DirectionalLight"
	BlockSpotLight        = "SpotLight"
	BlockPointLight       = "PointLight"
	BlockTimeline         = "Timeline"
	BlockCommon           = "Common"
)

// Entry names shared by the light struct arrays.
const (
	EntryLights = "lights"
)

// DefaultMaxSpotLights and DefaultMaxPointLights bound the light struct arrays.
const (
	DefaultMaxSpotLights  = 8
	DefaultMaxPointLights = 16
)

// DefaultCatalog returns the global block catalog in index order.
//
// Parameters:
//   - maxSpots: length of the spot light array
//   - maxPoints: length of the point light array
//
// Returns:
//   - []BlockSpec: the catalog
func DefaultCatalog(maxSpots, maxPoints int) []BlockSpec {
	return []BlockSpec{
		{Name: BlockTransformations, Entries: []Entry{
			{Name: "model", Type: TypeMat4},
			{Name: "modelInverse", Type: TypeMat4},
			{Name: "normalMatrix", Type: TypeMat4},
		}},
		{Name: BlockCamera, Entries: []Entry{
			{Name: "view", Type: TypeMat4},
			{Name: "projection", Type: TypeMat4},
			{Name: "viewProjection", Type: TypeMat4},
			{Name: "inverseView", Type: TypeMat4},
			{Name: "inverseProjection", Type: TypeMat4},
			{Name: "position", Type: TypeVec3},
			{Name: "near", Type: TypeFloat},
			{Name: "far", Type: TypeFloat},
			{Name: "perspective", Type: TypeFloat},
			{Name: "aspect", Type: TypeFloat},
			{Name: "fov", Type: TypeFloat},
		}},
		{Name: BlockDirectionalLight, Entries: []Entry{
			{Name: "direction", Type: TypeVec3},
			{Name: "color", Type: TypeColor},
			{Name: "intensity", Type: TypeFloat},
			{Name: "enabled", Type: TypeFloat},
			{Name: "castShadow", Type: TypeFloat},
			{Name: "shadowBias", Type: TypeFloat},
			{Name: "shadowMatrix", Type: TypeMat4},
		}},
		{Name: BlockSpotLight, Entries: []Entry{
			{Name: EntryLights, Type: TypeStructArray, Count: maxSpots, Fields: []Field{
				{Name: "position", Type: TypeVec3},
				{Name: "direction", Type: TypeVec3},
				{Name: "color", Type: TypeColor},
				{Name: "intensity", Type: TypeFloat},
				{Name: "distance", Type: TypeFloat},
				{Name: "angle", Type: TypeFloat},
				{Name: "penumbra", Type: TypeFloat},
				{Name: "decay", Type: TypeFloat},
				{Name: "castShadow", Type: TypeFloat},
				{Name: "shadowSlot", Type: TypeFloat},
				{Name: "shadowMatrix", Type: TypeMat4},
			}},
		}},
		{Name: BlockPointLight, Entries: []Entry{
			{Name: EntryLights, Type: TypeStructArray, Count: maxPoints, Fields: []Field{
				{Name: "position", Type: TypeVec3},
				{Name: "color", Type: TypeColor},
				{Name: "intensity", Type: TypeFloat},
				{Name: "distance", Type: TypeFloat},
				{Name: "decay", Type: TypeFloat},
			}},
		}},
		{Name: BlockTimeline, Entries: []Entry{
			{Name: "time", Type: TypeFloat},
			{Name: "delta", Type: TypeFloat},
			{Name: "frame", Type: TypeFloat},
		}},
		{Name: BlockCommon, Entries: []Entry{
			{Name: "resolution", Type: TypeVec2},
			{Name: "spotLightCount", Type: TypeFloat},
			{Name: "pointLightCount", Type: TypeFloat},
			{Name: "spotShadowCount", Type: TypeFloat},
		}},
	}
}
