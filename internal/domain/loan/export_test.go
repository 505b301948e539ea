package loan

func (s *Service) SetSweepPageSize(n int32) {
	s.sweepPage = n
}
