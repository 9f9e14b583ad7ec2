package pywat

// AssignStmt stores Value into Target, which is an *Identifier or a
// *FieldExpr.
type AssignStmt struct {
	Target   Expression
	Value    Expression
	position Position
}

func (s *AssignStmt) stmtNode()        {}
func (s *AssignStmt) Pos() Position    { return s.position }
func (s *AssignStmt) ResultType() Type { return NoneType }

// Name is the assigned variable, or "" for field assignments.
func (s *AssignStmt) Name() string {
	if id, ok := s.Target.(*Identifier); ok {
		return id.Name
	}
	return ""
}

// IfStmt has an optional Else block; elif chains nest in Else.
type IfStmt struct {
	Condition Expression
	Then      []Statement
	Else      []Statement
	ty        Type
	position  Position
}

func (s *IfStmt) stmtNode()        {}
func (s *IfStmt) Pos() Position    { return s.position }
func (s *IfStmt) ResultType() Type { return s.ty }

type WhileStmt struct {
	Condition Expression
	Body      []Statement
	ty        Type
	position  Position
}

func (s *WhileStmt) stmtNode()        {}
func (s *WhileStmt) Pos() Position    { return s.position }
func (s *WhileStmt) ResultType() Type { return s.ty }

type PassStmt struct {
	position Position
}

func (s *PassStmt) stmtNode()        {}
func (s *PassStmt) Pos() Position    { return s.position }
func (s *PassStmt) ResultType() Type { return NoneType }

type ReturnStmt struct {
	Value    Expression
	ty       Type
	position Position
}

func (s *ReturnStmt) stmtNode()        {}
func (s *ReturnStmt) Pos() Position    { return s.position }
func (s *ReturnStmt) ResultType() Type { return s.ty }

type ExprStmt struct {
	Expr     Expression
	position Position
}

func (s *ExprStmt) stmtNode()        {}
func (s *ExprStmt) Pos() Position    { return s.position }
func (s *ExprStmt) ResultType() Type { return NoneType }
