package board

import "duet_backend/internal/domain"

// Fixed keycard layouts, read row by row before the shared permutation is
// applied. Cell codes: 0 agent, 1 bystander, 2 assassin.
//
// NORMAL/CUSTOM layouts carry 9 agents, 13 bystanders and 3 assassins each;
// COUNTERINTELLIGENCE layouts carry 9 agents and 16 assassins.

var keycardNormalA = [domain.BoardSize]domain.CellRole{
	0, 1, 1, 0, 2,
	1, 0, 1, 1, 0,
	0, 1, 2, 1, 0,
	1, 0, 1, 1, 2,
	0, 1, 0, 1, 1,
}

var keycardNormalB = [domain.BoardSize]domain.CellRole{
	1, 0, 1, 2, 0,
	0, 1, 0, 1, 1,
	2, 0, 1, 1, 0,
	1, 1, 0, 1, 0,
	0, 1, 1, 2, 1,
}

var keycardCounterintelA = [domain.BoardSize]domain.CellRole{
	0, 2, 2, 0, 2,
	2, 0, 2, 2, 0,
	0, 2, 2, 2, 0,
	2, 0, 2, 2, 0,
	2, 2, 0, 2, 2,
}

var keycardCounterintelB = [domain.BoardSize]domain.CellRole{
	2, 0, 2, 2, 0,
	0, 2, 2, 0, 2,
	2, 2, 0, 2, 0,
	0, 2, 2, 0, 2,
	2, 0, 2, 2, 2,
}
