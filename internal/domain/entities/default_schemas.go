package entities

// DefaultSchemas are the built-in type schemas seeded on world creation.
// Users can add more schema documents alongside them; these cannot be
// deleted, only overridden field by field.
var DefaultSchemas = []Schema{
	{
		Type:        "character",
		Description: "People and named beings of the world",
		Fields: map[string]FieldSpec{
			"name":        {Type: FieldString, Required: true},
			"description": {Type: FieldString},
			"age":         {Type: FieldNumber, Asserts: &Assertion{Property: "age"}},
			"home":        {Type: FieldReference},
			"allies":      {Type: FieldReferenceList},
			"rival_of":    {Type: FieldReference},
			"member_of":   {Type: FieldReference},
		},
	},
	{
		Type:        "location",
		Description: "Places, regions, buildings, geographical features",
		Fields: map[string]FieldSpec{
			"name":        {Type: FieldString, Required: true},
			"description": {Type: FieldString},
			"region":      {Type: FieldString},
			"part_of":     {Type: FieldReference},
			"ruled_by":    {Type: FieldReference},
		},
	},
	{
		Type:        "faction",
		Description: "Organizations, guilds, kingdoms, orders",
		Fields: map[string]FieldSpec{
			"name":        {Type: FieldString, Required: true},
			"description": {Type: FieldString},
			"alignment":   {Type: FieldString, Enum: []string{"good", "neutral", "evil"}},
			"seat":        {Type: FieldReference},
			"leader":      {Type: FieldReference},
			"enemies":     {Type: FieldReferenceList},
		},
	},
	{
		Type:        "species",
		Description: "Races and species populating the world",
		Fields: map[string]FieldSpec{
			"name":        {Type: FieldString, Required: true},
			"description": {Type: FieldString},
			"lifespan": {
				Type:          FieldNumber,
				ConflictsWith: []string{"immortal"},
				Asserts:       &Assertion{Property: "lifespan"},
			},
			"immortal": {
				Type:          FieldBoolean,
				ConflictsWith: []string{"lifespan"},
				Asserts:       &Assertion{Property: "lifespan", Unlimited: true, When: "true"},
			},
			"homeland": {Type: FieldReference},
		},
	},
	{
		Type:        "deity",
		Description: "Gods and other worshipped powers",
		Fields: map[string]FieldSpec{
			"name":         {Type: FieldString, Required: true},
			"description":  {Type: FieldString},
			"domain":       {Type: FieldString},
			"worshipped_by": {Type: FieldReferenceList},
			"patron_of":    {Type: FieldReference},
			"mortality_override": {
				Type:    FieldString,
				Enum:    []string{"immortal", "mortal"},
				Asserts: &Assertion{Property: "lifespan", Unlimited: true, When: "immortal", SubjectField: "patron_of"},
			},
		},
	},
	{
		Type:        "artifact",
		Description: "Items of significance: relics, weapons, texts",
		Fields: map[string]FieldSpec{
			"name":        {Type: FieldString, Required: true},
			"description": {Type: FieldString},
			"held_by":     {Type: FieldReference},
			"forged_at":   {Type: FieldReference},
		},
	},
	{
		Type:        "event",
		Description: "Historical events, battles, ceremonies",
		Fields: map[string]FieldSpec{
			"name":         {Type: FieldString, Required: true},
			"description":  {Type: FieldString},
			"year":         {Type: FieldNumber},
			"location":     {Type: FieldReference},
			"participants": {Type: FieldReferenceList},
		},
	},
}

// DefaultSchemaTypes returns just the type names of the built-in schemas.
func DefaultSchemaTypes() []string {
	names := make([]string, len(DefaultSchemas))
	for i, s := range DefaultSchemas {
		names[i] = s.Type
	}
	return names
}

// IsDefaultSchema checks if a type name is a built-in default.
func IsDefaultSchema(name string) bool {
	for _, s := range DefaultSchemas {
		if s.Type == name {
			return true
		}
	}
	return false
}
